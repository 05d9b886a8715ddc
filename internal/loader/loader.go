// Package loader reads winning-item and built-set tables from CSV exports
// and offline JSON snapshots. Rows that cannot be trusted are dropped here
// and listed in a Report; the engine only sees clean rows.
package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"ghostbuild/internal/build"
)

var (
	// ErrMissingColumn means a required column is absent from a table
	ErrMissingColumn = errors.New("missing required column")
	// ErrUnsupportedPayload means a snapshot file is not a list or object
	ErrUnsupportedPayload = errors.New("unsupported payload structure")
)

// Loader holds the validation and naming rules shared by every read
type Loader struct {
	validate *validator.Validate
	rename   func(string) string
	log      zerolog.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithRename maps every item name before validation, e.g. item IDs or
// English names to local display names
func WithRename(fn func(string) string) Option {
	return func(l *Loader) { l.rename = fn }
}

// WithLogger attaches a logger for per-table summaries
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// New creates a loader
func New(opts ...Option) *Loader {
	l := &Loader{
		validate: validator.New(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) name(s string) string {
	if l.rename == nil {
		return s
	}
	return l.rename(s)
}

func (l *Loader) logReport(r Report) {
	ev := l.log.Debug()
	if len(r.Rejected) > 0 {
		ev = l.log.Warn()
	}
	ev.Str("table", r.Table).
		Int("rows", r.Rows).
		Int("accepted", r.Accepted).
		Int("duplicates", r.Duplicates).
		Int("rejected", len(r.Rejected)).
		Msg("table loaded")
}

// ReadWinningFile reads a winning-items CSV from disk
func (l *Loader) ReadWinningFile(path string) ([]build.WinningItem, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{Table: "winning"}, fmt.Errorf("failed to open winning table: %w", err)
	}
	defer f.Close()
	return l.ReadWinningCSV(f)
}

// ReadSetsFile reads a built-sets CSV from disk
func (l *Loader) ReadSetsFile(path string) ([]build.BuiltSet, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{Table: "sets"}, fmt.Errorf("failed to open sets table: %w", err)
	}
	defer f.Close()
	return l.ReadSetsCSV(f)
}
