// Package app wires configuration, logging, metrics and the Postgres source
// together and seeds the store on start.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/recordkeeper/internal/config"
	"github.com/dmitrijs2005/recordkeeper/internal/core/device"
	"github.com/dmitrijs2005/recordkeeper/internal/core/user"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/dmitrijs2005/recordkeeper/internal/metrics"
	"github.com/dmitrijs2005/recordkeeper/internal/source"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	source  *source.PgSource
}

// NewApp builds the logger and metrics and opens the pool described by c.
func NewApp(ctx context.Context, c *config.Config, reg prometheus.Registerer) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	m := metrics.New(reg)

	src, err := source.OpenPostgres(ctx, c.DatabaseDSN, c.MaxConnections,
		source.WithLogger(logger), source.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return &App{config: c, logger: logger, metrics: m, source: src}, nil
}

// Source exposes the opened store to callers running operations.
func (app *App) Source() *source.PgSource { return app.source }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema when configured and seeds the developer account.
// SIGINT/SIGTERM cancel whatever step is in flight.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "Starting app...")

	if app.config.MigrateOnStart {
		if err := app.source.RunMigrations(ctx); err != nil {
			return err
		}
		app.logger.Info(ctx, "migrations applied")
	}

	err := Bootstrap(ctx, app.source, Account{
		Role:     app.config.BootstrapRole,
		Username: app.config.BootstrapUsername,
		Password: app.config.BootstrapPassword,
	})
	if err != nil {
		return err
	}

	app.logger.Info(ctx, "bootstrap complete")
	return nil
}

// OpenSession opens a session of the configured TTL for userID on rec and
// persists the device. rec is left updated even when the write fails.
func (app *App) OpenSession(ctx context.Context, rec *device.Record, userID user.ID, author uuid.UUID) (device.Session, error) {
	s, err := device.OpenSession(rec, userID, app.config.SessionTTL, author)
	if err != nil {
		return device.Session{}, err
	}
	if err := source.Write(ctx, app.source, device.WriteDevice{Record: rec}); err != nil {
		return device.Session{}, err
	}
	app.logger.Debug(ctx, "session opened", "device", rec.ID().String(), "user", userID.String())
	return s, nil
}

func (app *App) Close() error {
	return app.source.Close()
}
