package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
	"ghostbuild/internal/render"
)

type recommendOptions struct {
	keyFlags
	engineFlags
	winning  string
	sets     string
	out      string
	card     bool
	itemsMap string
}

func newRecommendCommand(c *cli) *cobra.Command {
	o := &recommendOptions{}
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend a build from winning-item and built-set CSV tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runRecommend(cmd, o)
		},
	}
	o.keyFlags.bind(cmd)
	o.engineFlags.bind(cmd)
	cmd.Flags().StringVar(&o.winning, "winning", "", "Winning items CSV")
	cmd.Flags().StringVar(&o.sets, "sets", "", "Built sets CSV")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Output JSON path (default stdout)")
	cmd.Flags().BoolVar(&o.card, "card", false, "Also write a Markdown card next to --out")
	cmd.Flags().StringVar(&o.itemsMap, "items-map", "", "Item map CSV used to localize item names")
	_ = cmd.MarkFlagRequired("winning")
	_ = cmd.MarkFlagRequired("sets")
	return cmd
}

func (c *cli) runRecommend(cmd *cobra.Command, o *recommendOptions) error {
	l, err := c.newLoader(o.itemsMap)
	if err != nil {
		return err
	}
	winning, _, err := l.ReadWinningFile(o.winning)
	if err != nil {
		return err
	}
	sets, _, err := l.ReadSetsFile(o.sets)
	if err != nil {
		return err
	}

	tables := pipeline.Tables{
		Winning: winning,
		Sets:    sets,
		Source:  fmt.Sprintf("csv:%s,%s", filepath.Base(o.winning), filepath.Base(o.sets)),
	}
	return c.recommendAndWrite(cmd.OutOrStdout(), o.key(c.cfg), tables, &o.engineFlags, o.out, o.card)
}

type snapshotOptions struct {
	keyFlags
	engineFlags
	inputDir string
	out      string
	card     bool
}

func newSnapshotCommand(c *cli) *cobra.Command {
	o := &snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Recommend a build from an offline snapshot directory",
		Long: `Recommend a build from an offline snapshot directory holding winning.json,
sets.json and an optional meta.json. The champion defaults to the directory name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, _, err := loader.New(loader.WithLogger(logger("loader"))).LoadSnapshot(o.inputDir)
			if err != nil {
				return err
			}
			if o.champion == "" {
				o.champion = filepath.Base(filepath.Clean(o.inputDir))
			}
			return c.recommendAndWrite(cmd.OutOrStdout(), o.key(c.cfg), tables, &o.engineFlags, o.out, o.card)
		},
	}
	o.keyFlags.bind(cmd)
	o.engineFlags.bind(cmd)
	cmd.Flags().StringVar(&o.inputDir, "input-dir", "", "Snapshot directory")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Output JSON path (default stdout)")
	cmd.Flags().BoolVar(&o.card, "card", false, "Also write a Markdown card next to --out")
	_ = cmd.MarkFlagRequired("input-dir")
	return cmd
}

func (c *cli) recommendAndWrite(w io.Writer, key pipeline.Key, tables pipeline.Tables, ef *engineFlags, out string, card bool) error {
	opts, err := ef.apply(c.options())
	if err != nil {
		return err
	}
	rec, err := pipeline.Recommend(key, tables, opts)
	if err != nil {
		return err
	}
	return writeRecord(w, rec, out, card)
}

// writeRecord saves rec to out, or prints it when out is empty
func writeRecord(w io.Writer, rec *pipeline.Record, out string, card bool) error {
	if out == "" {
		_, err := pipeline.WriteJSON(w, rec)
		return err
	}

	sum, err := pipeline.SaveRecord(out, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "[ok] wrote -> %s (sha256 %s)\n", out, sum[:12])

	if card {
		mdPath := strings.TrimSuffix(out, filepath.Ext(out)) + ".md"
		if err := render.WriteFile(mdPath, render.BuildCard(rec)); err != nil {
			return err
		}
		fmt.Fprintf(w, "[ok] wrote -> %s\n", mdPath)
	}
	return nil
}
