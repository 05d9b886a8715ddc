// Package pipeline turns one (champion, mode, tier, window) key into a build
// record: load the two tables, run the engine, settle the boots.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ghostbuild/internal/boots"
	"ghostbuild/internal/build"
)

var (
	// ErrEmptyWinning means the winning-items table has no usable rows
	ErrEmptyWinning = errors.New("empty winning items table")
	// ErrEmptySets means the built-sets table has no usable rows
	ErrEmptySets = errors.New("empty built sets table")
)

// Key identifies one recommendation run
type Key struct {
	Champion string `json:"champion"`
	Mode     string `json:"mode"`
	Tier     string `json:"tier"`
	Window   string `json:"window"`
}

// Base is the file-name stem for the key: champion_mode_tier_window
func (k Key) Base() string {
	return strings.Join([]string{k.Champion, k.Mode, k.Tier, k.Window}, "_")
}

func (k Key) String() string { return k.Base() }

// Tables is the input of one run
type Tables struct {
	Winning []build.WinningItem
	Sets    []build.BuiltSet
	// Source describes where the tables came from
	Source string
	// Icons maps item names to image URLs when the source carries them
	Icons map[string]string
}

// Source loads the tables for a key
type Source interface {
	Tables(ctx context.Context, key Key) (Tables, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, key Key) (Tables, error)

func (f SourceFunc) Tables(ctx context.Context, key Key) (Tables, error) { return f(ctx, key) }

// Chain tries each source in turn and returns the first success
type Chain []Source

func (c Chain) Tables(ctx context.Context, key Key) (Tables, error) {
	var errs []error
	for _, src := range c {
		tables, err := src.Tables(ctx, key)
		if err == nil {
			return tables, nil
		}
		if ctx.Err() != nil {
			return Tables{}, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Tables{}, errors.New("no sources configured")
	}
	return Tables{}, errors.Join(errs...)
}

// Recorder receives per-run measurements
type Recorder interface {
	ObserveRecommendation(tier build.SelectorTier, elapsed time.Duration)
}

// Options configures Run
type Options struct {
	Engine build.Config
	// KeepBootsPlaceholder leaves the engine's boots placeholder untouched
	KeepBootsPlaceholder bool
	Logger               *zerolog.Logger
	Recorder             Recorder
}

// Run loads the tables for key from src and recommends a build
func Run(ctx context.Context, src Source, key Key, opts Options) (*Record, error) {
	tables, err := src.Tables(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables for %s: %w", key, err)
	}
	return Recommend(key, tables, opts)
}

// Recommend runs the engine over already loaded tables
func Recommend(key Key, tables Tables, opts Options) (*Record, error) {
	if len(tables.Winning) == 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrEmptyWinning)
	}
	if len(tables.Sets) == 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrEmptySets)
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("key", key.Base()).Logger()
	}

	start := time.Now()
	res := build.NewEngine(opts.Engine).WithLogger(log).Recommend(tables.Winning, tables.Sets)
	elapsed := time.Since(start)

	if !opts.KeepBootsPlaceholder {
		res.Boots = boots.Choose(tables.Sets, tables.Winning)
	}
	if opts.Recorder != nil {
		opts.Recorder.ObserveRecommendation(res.Rationale.Thresholds.Tier, elapsed)
	}

	log.Info().
		Str("tier", string(res.Rationale.Thresholds.Tier)).
		Strs("order", res.Order).
		Str("boots", res.Boots).
		Dur("elapsed", elapsed).
		Msg("build recommended")

	return &Record{
		Spec: Spec{
			Champion: key.Champion,
			Mode:     key.Mode,
			Tier:     key.Tier,
			Window:   key.Window,
			Source:   tables.Source,
		},
		Build:     Build{Boots: res.Boots, Order: res.Order},
		Rationale: res.Rationale,
	}, nil
}
