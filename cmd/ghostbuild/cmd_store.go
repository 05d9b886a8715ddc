package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ghostbuild/internal/pipeline"
)

type importOptions struct {
	keyFlags
	inputDir string
	winning  string
	sets     string
	itemsMap string
	postgres bool
}

func newImportCommand(c *cli) *cobra.Command {
	o := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one key's tables into the snapshot store",
		Long: `Import one key's tables into the snapshot store, replacing any tables already
stored for it. Reads a snapshot directory (--input-dir) or a CSV pair (--winning, --sets).
With --postgres the tables are also written to the configured Postgres stats database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := c.newLoader(o.itemsMap)
			if err != nil {
				return err
			}

			var tables pipeline.Tables
			switch {
			case o.inputDir != "":
				tables, _, err = l.LoadSnapshot(o.inputDir)
				if err != nil {
					return err
				}
				if o.champion == "" {
					o.champion = filepath.Base(filepath.Clean(o.inputDir))
				}
			case o.winning != "" && o.sets != "":
				if tables.Winning, _, err = l.ReadWinningFile(o.winning); err != nil {
					return err
				}
				if tables.Sets, _, err = l.ReadSetsFile(o.sets); err != nil {
					return err
				}
				tables.Source = fmt.Sprintf("csv:%s,%s", filepath.Base(o.winning), filepath.Base(o.sets))
			default:
				return fmt.Errorf("either --input-dir or both --winning and --sets are required")
			}
			if o.champion == "" {
				return fmt.Errorf("--champion is required")
			}

			if o.postgres && c.cfg.Storage.PostgresURL == "" {
				return fmt.Errorf("--postgres needs storage.postgres_url or DATABASE_URL")
			}

			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			key := o.key(c.cfg)
			if err := a.Store.ImportSnapshot(cmd.Context(), key, tables); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[ok] imported %s (%d winning, %d sets)\n",
				key.Base(), len(tables.Winning), len(tables.Sets))

			if o.postgres {
				if err := a.DB.CreateTables(cmd.Context()); err != nil {
					return err
				}
				if err := a.DB.SaveTables(cmd.Context(), key, tables); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[ok] saved %s to postgres\n", key.Base())
			}
			return nil
		},
	}
	o.keyFlags.bind(cmd)
	cmd.Flags().StringVar(&o.inputDir, "input-dir", "", "Snapshot directory")
	cmd.Flags().StringVar(&o.winning, "winning", "", "Winning items CSV")
	cmd.Flags().StringVar(&o.sets, "sets", "", "Built sets CSV")
	cmd.Flags().StringVar(&o.itemsMap, "items-map", "", "Item map CSV used to localize item names")
	cmd.Flags().BoolVar(&o.postgres, "postgres", false, "Also write the tables to the Postgres stats database")
	return cmd
}

func newSyncCommand(c *cli) *cobra.Command {
	var (
		manifest string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the latest snapshot bundle from the remote manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if manifest == "" {
				manifest = c.cfg.Stats.ManifestURL
			}
			if manifest == "" {
				return fmt.Errorf("no manifest URL (set --manifest, stats.manifest_url or STATS_MANIFEST_URL)")
			}

			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			check := a.Store.CheckForUpdates
			if force {
				check = a.Store.ForceUpdate
			}
			updated, err := check(cmd.Context(), manifest)
			if err != nil {
				return err
			}
			if updated {
				fmt.Fprintf(cmd.OutOrStdout(), "[ok] updated to %s\n", a.Store.Version())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "[ok] already at %s\n", a.Store.Version())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "", "Manifest URL (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-download even when the version matches")
	return cmd
}

func newExportCommand(c *cli) *cobra.Command {
	var dir, ver, dataURL string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the store as data.json plus manifest.json for publishing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.Store.Export(cmd.Context(), dir, ver, dataURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[ok] exported version %s to %s (sha256 %s)\n", m.Version, dir, m.DataSha256)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "data/export", "Output directory")
	cmd.Flags().StringVar(&ver, "version", "", "Data version to publish")
	cmd.Flags().StringVar(&dataURL, "data-url", "", "Public URL the manifest points at")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
