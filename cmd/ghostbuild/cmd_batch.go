package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ghostbuild/internal/batch"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
	"ghostbuild/internal/render"
)

type batchOptions struct {
	keyFlags
	engineFlags
	champions   string
	dir         string
	out         string
	concurrency int
	index       bool
}

func newBatchCommand(c *cli) *cobra.Command {
	o := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Recommend builds for many champions concurrently",
		Long: `Recommend builds for many champions concurrently. Tables are read from --dir
(CSV pairs or snapshot directories named <champion>_<mode>_<tier>_<window>) or,
without --dir, from the snapshot store and Postgres.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runBatch(cmd, o)
		},
	}
	o.keyFlags.bind(cmd)
	o.engineFlags.bind(cmd)
	cmd.Flags().StringVar(&o.champions, "champions", "", "Comma-separated champion names")
	cmd.Flags().StringVar(&o.dir, "dir", "", "Directory of input tables (default: snapshot store)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 0, "Parallel jobs (default from config)")
	cmd.Flags().BoolVar(&o.index, "index", true, "Write index.md for the output directory")
	_ = cmd.MarkFlagRequired("champions")
	return cmd
}

func (c *cli) runBatch(cmd *cobra.Command, o *batchOptions) error {
	opts, err := o.apply(c.options())
	if err != nil {
		return err
	}
	if o.out == "" {
		o.out = c.cfg.Output.Dir
	}
	if o.concurrency == 0 {
		o.concurrency = c.cfg.Batch.Concurrency
	}

	var src pipeline.Source
	if o.dir != "" {
		src = loader.Dir{Root: o.dir, Loader: loader.New(loader.WithLogger(logger("loader")))}
	} else {
		a, err := c.openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		src = a.Source()
		opts.Recorder = a.Metrics
	}

	base := o.key(c.cfg)
	keys := batch.Keys(strings.Split(o.champions, ","), base.Mode, base.Tier, base.Window)
	runner := &batch.Runner{
		Source:      src,
		Options:     opts,
		Concurrency: o.concurrency,
		OutDir:      o.out,
		Logger:      logger("batch"),
	}

	w := cmd.OutOrStdout()
	sum := runner.Run(cmd.Context(), keys, func(ev batch.Event) {
		switch ev.Status {
		case batch.StatusDone:
			fmt.Fprintf(w, "[ok] %s: %s\n", ev.Key.Base(), strings.Join(ev.Record.Build.Order, " → "))
		case batch.StatusFailed:
			fmt.Fprintf(w, "[fail] %s: %s\n", ev.Key.Base(), ev.Error)
		}
	})
	fmt.Fprintf(w, "%d done, %d failed in %s\n", sum.Done, sum.Failed, sum.Elapsed.Round(time.Millisecond))

	if o.index && sum.Done > 0 {
		if err := writeIndex(o.out, defaultIndexTitle(base), false); err != nil {
			return err
		}
	}

	var errs []error
	for _, res := range sum.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

func defaultIndexTitle(k pipeline.Key) string {
	return fmt.Sprintf("%s %s Build 索引", strings.ToUpper(k.Mode), k.Window)
}

func writeIndex(dir, title string, html bool) error {
	entries, err := render.CollectIndex(dir)
	if err != nil {
		return err
	}
	md := render.Index(title, entries)
	if err := render.WriteFile(filepath.Join(dir, "index.md"), md); err != nil {
		return err
	}
	if !html {
		return nil
	}
	page, err := render.HTML(md)
	if err != nil {
		return err
	}
	return render.WriteFile(filepath.Join(dir, "index.html"), page)
}
