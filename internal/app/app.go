// Package app wires configuration, storage and metrics into the sources and
// options the binaries hand to the pipeline.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ghostbuild/internal/config"
	"ghostbuild/internal/data"
	"ghostbuild/internal/db"
	"ghostbuild/internal/logging"
	"ghostbuild/internal/metrics"
	"ghostbuild/internal/pipeline"
)

// App holds the long-lived dependencies of one process
type App struct {
	Config  *config.Config
	Store   *data.Store
	DB      *db.DB
	Metrics *metrics.Metrics
	log     zerolog.Logger
}

// New opens the snapshot store and, when configured, the Postgres source
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		log:     logging.Component("app"),
	}

	store, err := data.Open(ctx, cfg.Storage.DSN, cfg.Storage.AuthToken, logging.Component("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	store.Recorder = a.Metrics
	a.Store = store

	if cfg.Storage.PostgresURL != "" {
		pg, err := db.New(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		pg.Recorder = a.Metrics
		a.DB = pg
	}

	a.log.Info().
		Str("dsn", redact(cfg.Storage.DSN)).
		Bool("remote", data.IsRemote(cfg.Storage.DSN)).
		Bool("postgres", a.DB != nil).
		Str("data_version", store.Version()).
		Msg("storage ready")
	return a, nil
}

// Source tries the store, then Postgres, then any extra sources in order
func (a *App) Source(extra ...pipeline.Source) pipeline.Source {
	chain := pipeline.Chain{a.Store}
	if a.DB != nil {
		chain = append(chain, a.DB)
	}
	return append(chain, extra...)
}

// Options builds pipeline options from the engine config
func (a *App) Options() pipeline.Options {
	l := logging.Component("pipeline")
	return pipeline.Options{
		Engine:   a.Config.Engine,
		Logger:   &l,
		Recorder: a.Metrics,
	}
}

// Key fills the configured mode, tier and window for a champion
func (a *App) Key(champion string) pipeline.Key {
	return KeyFor(a.Config, champion)
}

// KeyFor is Key without an App
func KeyFor(cfg *config.Config, champion string) pipeline.Key {
	return pipeline.Key{
		Champion: champion,
		Mode:     cfg.Defaults.Mode,
		Tier:     cfg.Defaults.Tier,
		Window:   cfg.Defaults.Window,
	}
}

// Close releases every connection
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if err := a.Store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	}
}

// redact drops the query string, which may carry an auth token
func redact(dsn string) string {
	base, _, _ := strings.Cut(dsn, "?")
	return base
}
