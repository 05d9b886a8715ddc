package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ghostbuild/internal/pipeline"
)

// Dir serves tables from a directory holding either a CSV pair
// <key>_winning.csv / <key>_sets.csv or a snapshot directory named <key>.
type Dir struct {
	Root   string
	Loader *Loader
}

// Tables implements pipeline.Source
func (d Dir) Tables(ctx context.Context, key pipeline.Key) (pipeline.Tables, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Tables{}, err
	}
	l := d.Loader
	if l == nil {
		l = New()
	}

	base := key.Base()
	winPath := filepath.Join(d.Root, base+"_winning.csv")
	setsPath := filepath.Join(d.Root, base+"_sets.csv")
	if exists(winPath) && exists(setsPath) {
		winning, _, err := l.ReadWinningFile(winPath)
		if err != nil {
			return pipeline.Tables{}, fmt.Errorf("%s: %w", winPath, err)
		}
		sets, _, err := l.ReadSetsFile(setsPath)
		if err != nil {
			return pipeline.Tables{}, fmt.Errorf("%s: %w", setsPath, err)
		}
		return pipeline.Tables{Winning: winning, Sets: sets, Source: filepath.Join(d.Root, base)}, nil
	}

	snap := filepath.Join(d.Root, base)
	if exists(filepath.Join(snap, "winning.json")) {
		tables, _, err := l.LoadSnapshot(snap)
		return tables, err
	}
	return pipeline.Tables{}, fmt.Errorf("no tables for %s under %s: %w", base, d.Root, os.ErrNotExist)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
