package loader

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-playground/validator/v10"

	"ghostbuild/internal/build"
	"ghostbuild/internal/pipeline"
)

type winningRow struct {
	Name       string  `validate:"required"`
	WinRate    float64 `validate:"gte=0,lte=1"`
	PickRate   float64 `validate:"gte=0,lte=1"`
	SampleSize int     `validate:"gte=0"`
}

func (r winningRow) item() build.WinningItem {
	return build.WinningItem{Name: r.Name, WinRate: r.WinRate, PickRate: r.PickRate, SampleSize: r.SampleSize}
}

type setRow struct {
	Items         []string `validate:"len=5,unique,dive,required"`
	SetWinRate    float64  `validate:"gte=0,lte=1"`
	SetPickRate   float64  `validate:"gte=0,lte=1"`
	SetSampleSize int      `validate:"gte=0"`
}

func (r setRow) set() build.BuiltSet {
	return build.BuiltSet{Items: r.Items, SetWinRate: r.SetWinRate, SetPickRate: r.SetPickRate, SetSampleSize: r.SetSampleSize}
}

// describe flattens validator errors into one reason string
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s fails %s (got %v)", fe.Field(), rule, fe.Value()))
	}
	return strings.Join(parts, "; ")
}

// dedupe tracks names already seen. The bloom filter answers most lookups;
// a hit is confirmed against the exact set.
type dedupe struct {
	filter *bloom.BloomFilter
	seen   map[string]struct{}
}

func newDedupe(n int) *dedupe {
	return &dedupe{
		filter: bloom.NewWithEstimates(uint(max(n, 64)), 0.001),
		seen:   make(map[string]struct{}, n),
	}
}

// first reports whether name is new and records it
func (d *dedupe) first(name string) bool {
	maybe := d.filter.TestAndAddString(name)
	if maybe {
		if _, dup := d.seen[name]; dup {
			return false
		}
	}
	d.seen[name] = struct{}{}
	return true
}

// Clean applies the loader's row rules to tables that arrived already
// decoded, such as a JSON request body
func (l *Loader) Clean(winning []build.WinningItem, sets []build.BuiltSet) ([]build.WinningItem, []build.BuiltSet, Reports) {
	var reps Reports

	reps.Winning = Report{Table: "winning"}
	seen := newDedupe(len(winning))
	cleanWinning := make([]build.WinningItem, 0, len(winning))
	for i, w := range winning {
		reps.Winning.Rows++
		wr := winningRow{
			Name:       l.name(strings.TrimSpace(w.Name)),
			WinRate:    normalizeRate(w.WinRate),
			PickRate:   normalizeRate(w.PickRate),
			SampleSize: w.SampleSize,
		}
		if err := l.validate.Struct(wr); err != nil {
			reps.Winning.reject(i+1, "%s", describe(err))
			continue
		}
		if !seen.first(wr.Name) {
			reps.Winning.Duplicates++
			continue
		}
		cleanWinning = append(cleanWinning, wr.item())
		reps.Winning.Accepted++
	}

	reps.Sets = Report{Table: "sets"}
	cleanSets := make([]build.BuiltSet, 0, len(sets))
	for i, s := range sets {
		reps.Sets.Rows++
		items := make([]string, len(s.Items))
		for j, it := range s.Items {
			items[j] = l.name(strings.TrimSpace(it))
		}
		sr := setRow{
			Items:         items,
			SetWinRate:    normalizeRate(s.SetWinRate),
			SetPickRate:   normalizeRate(s.SetPickRate),
			SetSampleSize: s.SetSampleSize,
		}
		if err := l.validate.Struct(sr); err != nil {
			reps.Sets.reject(i+1, "%s", describe(err))
			continue
		}
		cleanSets = append(cleanSets, sr.set())
		reps.Sets.Accepted++
	}

	l.logReport(reps.Winning)
	l.logReport(reps.Sets)
	return cleanWinning, cleanSets, reps
}

// ReportRecorder receives the reports of every clean
type ReportRecorder interface {
	RecordReports(Reports)
}

// CleanTables runs Clean over both tables of t, keeping its source and icons.
// Stores and database sources call it so that rows they hand to the engine
// pass the same rules as CSV and snapshot rows.
func (l *Loader) CleanTables(t pipeline.Tables) (pipeline.Tables, Reports) {
	winning, sets, reps := l.Clean(t.Winning, t.Sets)
	t.Winning, t.Sets = winning, sets
	return t, reps
}

// Dropped counts the rows a clean removed from both tables
func (r Reports) Dropped() int {
	return len(r.Winning.Rejected) + r.Winning.Duplicates + len(r.Sets.Rejected) + r.Sets.Duplicates
}
