package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ghostbuild/internal/itemmap"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
	"ghostbuild/internal/render"
)

type renderOptions struct {
	sets     string
	record   string
	outMD    string
	topK     int
	html     bool
	itemsMap string
}

func newRenderCommand(c *cli) *cobra.Command {
	o := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a build card and/or a loadout table as Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runRender(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.sets, "sets", "", "Built sets CSV to tabulate")
	cmd.Flags().StringVar(&o.record, "record", "", "Build record JSON to render as a card")
	cmd.Flags().StringVar(&o.outMD, "out-md", "", "Output Markdown path")
	cmd.Flags().IntVar(&o.topK, "topk", 8, "Loadouts to show, 0 for all")
	cmd.Flags().BoolVar(&o.html, "html", false, "Also write an HTML file next to --out-md")
	cmd.Flags().StringVar(&o.itemsMap, "items-map", "", "Item map CSV used for item icons")
	_ = cmd.MarkFlagRequired("out-md")
	return cmd
}

func (c *cli) runRender(cmd *cobra.Command, o *renderOptions) error {
	if o.sets == "" && o.record == "" {
		return fmt.Errorf("at least one of --sets or --record is required")
	}

	var parts []string
	if o.record != "" {
		rec, err := pipeline.ReadRecord(o.record)
		if err != nil {
			return err
		}
		parts = append(parts, render.BuildCard(rec))
	}
	if o.sets != "" {
		sets, _, err := loader.New(loader.WithLogger(logger("loader"))).ReadSetsFile(o.sets)
		if err != nil {
			return err
		}
		var icons render.IconFunc
		if o.itemsMap != "" {
			reg := itemmap.NewRegistry(c.cfg.ItemMap.BaseURL, logger("itemmap"))
			if err := reg.LoadFile(o.itemsMap); err != nil {
				return err
			}
			icons = reg.IconFor
		}
		parts = append(parts, render.SetsTable(sets, o.topK, icons))
	}

	md := strings.Join(parts, "\n")
	if err := render.WriteFile(o.outMD, md); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[ok] wrote -> %s\n", o.outMD)

	if o.html {
		page, err := render.HTML(md)
		if err != nil {
			return err
		}
		htmlPath := strings.TrimSuffix(o.outMD, filepath.Ext(o.outMD)) + ".html"
		if err := render.WriteFile(htmlPath, page); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[ok] wrote -> %s\n", htmlPath)
	}
	return nil
}

func newIndexCommand(c *cli) *cobra.Command {
	var (
		dir, title string
		html       bool
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Write index.md listing every build record in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = c.cfg.Output.Dir
			}
			if title == "" {
				title = defaultIndexTitle(pipeline.Key{Mode: c.cfg.Defaults.Mode, Window: c.cfg.Defaults.Window})
			}
			if err := writeIndex(dir, title, html); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[ok] wrote -> %s\n", filepath.Join(dir, "index.md"))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory of *_build.json records (default from config)")
	cmd.Flags().StringVar(&title, "title", "", "Index heading")
	cmd.Flags().BoolVar(&html, "html", false, "Also write index.html")
	return cmd
}
