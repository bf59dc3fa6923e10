package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   PostgreSQL DSN
//	-m int      maximum pool connections
//	-l string   log format (slog, zerolog)
//	-v string   log level (debug, info, warn, error)
//	-t int      session TTL, minutes
//	-migrate    apply migrations on start (-migrate=false to skip)
//	-r string   bootstrap role name
//	-u string   bootstrap username
//	-p string   bootstrap password
//
// os.Args is first filtered to the flags handled here with flagx.FilterArgs,
// so -c/-config and foreign flags do not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-m", "-l", "-v", "-t", "-migrate", "-r", "-u", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.MaxConnections, "m", config.MaxConnections, "maximum pool connections")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (slog, zerolog)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session TTL (in minutes)")

	fs.BoolVar(&config.MigrateOnStart, "migrate", config.MigrateOnStart, "apply migrations on start")
	fs.StringVar(&config.BootstrapRole, "r", config.BootstrapRole, "bootstrap role name")
	fs.StringVar(&config.BootstrapUsername, "u", config.BootstrapUsername, "bootstrap username")
	fs.StringVar(&config.BootstrapPassword, "p", config.BootstrapPassword, "bootstrap password")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -t only overrides the TTL when given, so finer JSON values survive.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
}
