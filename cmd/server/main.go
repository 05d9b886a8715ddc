package main

import (
	"context"
	"flag"
	"os"

	"ghostbuild/internal/app"
	"ghostbuild/internal/config"
	"ghostbuild/internal/logging"
	"ghostbuild/internal/scheduler"
	"ghostbuild/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Config file (default $GHOSTBUILD_CONFIG or ghostbuild.yaml)")
	syncOnStart := flag.Bool("sync-on-start", false, "Run a manifest sync before serving")
	flag.Parse()

	envFile := config.LoadEnvFile()
	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logging.Error().Err(err).Msg("invalid config")
		os.Exit(2)
	}
	logging.Init(cfg.Log)
	log := logging.Component("server")
	if envFile != "" {
		log.Info().Str("path", envFile).Msg("loaded .env")
	}

	ctx, cancel := server.SignalContext(context.Background(), log)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	if cfg.Stats.ManifestURL != "" {
		sched := scheduler.New(ctx, a.Store, cfg.Stats.ManifestURL, logging.Component("scheduler"))
		sched.Recorder = a.Metrics
		if err := sched.Register(cfg.Stats.SyncCron); err != nil {
			log.Fatal().Err(err).Msg("failed to schedule sync")
		}
		if *syncOnStart || !a.Store.HasData(ctx) {
			if _, err := sched.RunNow(); err != nil {
				log.Warn().Err(err).Msg("initial sync failed")
			}
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := server.New(server.Config{
		Source:      a.Source(),
		Snapshots:   a.Store,
		Options:     a.Options(),
		Mode:        cfg.Defaults.Mode,
		Tier:        cfg.Defaults.Tier,
		Window:      cfg.Defaults.Window,
		Concurrency: cfg.Batch.Concurrency,
		Metrics:     a.Metrics,
		Logger:      log,
	})

	if err := server.ListenAndServe(ctx, cfg.Server.Addr, srv.Router(), log); err != nil {
		log.Error().Err(err).Msg("server error")
		a.Close()
		os.Exit(1)
	}
}
