package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ghostbuild/internal/app"
	"ghostbuild/internal/config"
	"ghostbuild/internal/itemmap"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/logging"
	"ghostbuild/internal/pipeline"
)

var version = "dev"

// cli carries state shared by every subcommand
type cli struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "ghostbuild",
		Short: "ghostbuild - recommend 5-item builds from item and loadout statistics",
		Long: `ghostbuild turns a champion's per-item statistics and observed 5-item loadouts
into an ordered build with an auditable rationale.

Tables come from CSV exports, offline JSON snapshots, the local snapshot store
or a Postgres stats database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "Config file (default $GHOSTBUILD_CONFIG or ghostbuild.yaml)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.setup()
	}

	cmd.AddCommand(newRecommendCommand(c))
	cmd.AddCommand(newSnapshotCommand(c))
	cmd.AddCommand(newImportCommand(c))
	cmd.AddCommand(newSyncCommand(c))
	cmd.AddCommand(newExportCommand(c))
	cmd.AddCommand(newBatchCommand(c))
	cmd.AddCommand(newBootsCommand(c))
	cmd.AddCommand(newRenderCommand(c))
	cmd.AddCommand(newIndexCommand(c))
	cmd.AddCommand(newItemsCommand(c))
	cmd.AddCommand(newValidateCommand(c))

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

func (c *cli) setup() error {
	envFile := config.LoadEnvFile()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.Init(cfg.Log)
	if envFile != "" {
		logging.Debug().Str("path", envFile).Msg("loaded .env")
	}
	c.cfg = cfg
	return nil
}

func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.cfg)
}

func (c *cli) options() pipeline.Options {
	l := logging.Component("pipeline")
	return pipeline.Options{Engine: c.cfg.Engine, Logger: &l}
}

// newLoader builds a loader, localizing names through an item map when given
func (c *cli) newLoader(itemsMap string) (*loader.Loader, error) {
	opts := []loader.Option{loader.WithLogger(logging.Component("loader"))}
	if itemsMap != "" {
		reg := itemmap.NewRegistry(c.cfg.ItemMap.BaseURL, logging.Component("itemmap"))
		if err := reg.LoadFile(itemsMap); err != nil {
			return nil, err
		}
		opts = append(opts, loader.WithRename(reg.Localize))
	}
	return loader.New(opts...), nil
}

// keyFlags are the key flags shared by several commands
type keyFlags struct {
	champion, mode, tier, window string
}

func (k *keyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&k.champion, "champion", "", "Champion name")
	cmd.Flags().StringVar(&k.mode, "mode", "", "Game mode (default from config)")
	cmd.Flags().StringVar(&k.tier, "tier", "", "Rank tier (default from config)")
	cmd.Flags().StringVar(&k.window, "window", "", "Time window (default from config)")
}

func (k *keyFlags) key(cfg *config.Config) pipeline.Key {
	key := app.KeyFor(cfg, k.champion)
	if k.mode != "" {
		key.Mode = k.mode
	}
	if k.tier != "" {
		key.Tier = k.tier
	}
	if k.window != "" {
		key.Window = k.window
	}
	return key
}

// engineFlags override the engine section of the config
type engineFlags struct {
	explain   bool
	topK      int
	cover     float64
	keepBoots bool
}

func (e *engineFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&e.explain, "explain", false, "Include the full decision trace")
	cmd.Flags().IntVar(&e.topK, "topk", 0, "Maximum representative loadouts (default from config)")
	cmd.Flags().Float64Var(&e.cover, "cover", 0, "Cumulative pick-rate cover in (0, 1] (default from config)")
	cmd.Flags().BoolVar(&e.keepBoots, "keep-boots-placeholder", false, "Do not replace the boots placeholder")
}

func (e *engineFlags) apply(opts pipeline.Options) (pipeline.Options, error) {
	if e.explain {
		opts.Engine.Explain = true
	}
	if e.topK != 0 {
		if e.topK < 1 {
			return opts, fmt.Errorf("--topk must be at least 1, got %d", e.topK)
		}
		opts.Engine.TopK = e.topK
	}
	if e.cover != 0 {
		if e.cover < 0 || e.cover > 1 {
			return opts, fmt.Errorf("--cover must be in (0, 1], got %v", e.cover)
		}
		opts.Engine.Cover = e.cover
	}
	opts.KeepBootsPlaceholder = e.keepBoots
	return opts, nil
}

func logger(component string) zerolog.Logger {
	return logging.Component(component)
}
