package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/recordkeeper/internal/flagx"
	"github.com/dmitrijs2005/recordkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of a configuration file. Absent keys keep
// the value already in Config.
type JsonConfig struct {
	DatabaseDSN       *string         `json:"database_dsn"`
	MaxConnections    *int            `json:"max_connections"`
	LogFormat         *string         `json:"log_format"`
	LogLevel          *string         `json:"log_level"`
	SessionTTL        *timex.Duration `json:"session_ttl"`
	MigrateOnStart    *bool           `json:"migrate_on_start"`
	BootstrapRole     *string         `json:"bootstrap_role"`
	BootstrapUsername *string         `json:"bootstrap_username"`
	BootstrapPassword *string         `json:"bootstrap_password"`
}

// parseJson loads the file named by -c / -config into config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON
// panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.MaxConnections, c.MaxConnections)
	set(&config.LogFormat, c.LogFormat)
	set(&config.LogLevel, c.LogLevel)
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	set(&config.MigrateOnStart, c.MigrateOnStart)
	set(&config.BootstrapRole, c.BootstrapRole)
	set(&config.BootstrapUsername, c.BootstrapUsername)
	set(&config.BootstrapPassword, c.BootstrapPassword)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
