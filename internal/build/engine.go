// Package build recommends a 5-item loadout from per-item statistics and
// observed loadouts. Every run is a pure function of its inputs.
package build

import (
	"github.com/rs/zerolog"
)

// DefaultBoots is the footwear placeholder; boots are chosen outside the engine
const DefaultBoots = "狂戰士護脛"

// Config tunes one engine run
type Config struct {
	TopK    int     `yaml:"top_k" json:"top_k"`
	Cover   float64 `yaml:"cover" json:"cover"`
	Explain bool    `yaml:"explain" json:"explain"`
	Boots   string  `yaml:"boots" json:"boots"`
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		TopK:  DefaultTopK,
		Cover: DefaultCover,
		Boots: DefaultBoots,
	}
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.Cover <= 0 || c.Cover > 1 {
		c.Cover = DefaultCover
	}
	if c.Boots == "" {
		c.Boots = DefaultBoots
	}
	return c
}

// Engine runs the recommendation pipeline. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine creates an engine; zero config fields fall back to defaults
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults(), log: zerolog.Nop()}
}

// WithLogger returns a copy of the engine that logs stage summaries at debug level
func (e *Engine) WithLogger(l zerolog.Logger) *Engine {
	cp := *e
	cp.log = l
	return &cp
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Recommend produces the ordered 5-item build. Callers must reject empty
// winning or sets tables before calling.
func (e *Engine) Recommend(winning []WinningItem, sets []BuiltSet) Result {
	c0, thresholds := SelectCandidates(winning)
	topSets := SampleTopSets(sets, e.cfg.TopK, e.cfg.Cover)
	c1, tau, freq := FilterConsistent(c0, topSets)
	thresholds.Tau = tau

	e.log.Debug().
		Str("tier", string(thresholds.Tier)).
		Int("c0", len(c0)).
		Int("c1", len(c1)).
		Int("top_sets", len(topSets)).
		Float64("tau", tau).
		Msg("candidate pool ready")

	ranked := rankCandidates(c1, topSets)
	core := buildCore(ranked, topSets)
	selected := core.selected

	var remaining []WinningItem
	for _, r := range ranked {
		if !contains(selected, r.Name) {
			remaining = append(remaining, r.WinningItem)
		}
	}

	var slotStats []SlotCandidate
	if len(selected) < BuildSize {
		if last, stats, ok := ChooseFinalSlot(selected, remaining, topSets); ok {
			slotStats = stats
			if !contains(selected, last) {
				selected = append(selected, last)
			}
		}
	}

	final, pads, degenerate := Complete(selected, winning, topSets, sets)
	if len(final) > BuildSize {
		final = final[:BuildSize]
	}
	ordered := OrderByPosition(final, topSets)

	e.log.Debug().
		Strs("core", core.selected).
		Int("padded", len(pads)).
		Bool("degenerate", degenerate).
		Strs("order", ordered).
		Msg("build ordered")

	supports := core.supports
	if supports == nil {
		supports = []float64{}
	}
	res := Result{
		Boots: e.cfg.Boots,
		Order: ordered,
		Rationale: Rationale{
			Thresholds:  thresholds,
			Supports:    supports,
			TopSetsUsed: len(topSets),
			Degenerate:  degenerate,
		},
	}

	if e.cfg.Explain {
		res.Rationale.Explain = &Trace{
			WinningItems:           append([]WinningItem(nil), winning...),
			C0:                     names(c0),
			C1:                     names(c1),
			CooccurFreq:            freq,
			Decisions:              core.decisions,
			FinalSlot:              slotStats,
			Padding:                pads,
			SelectedBeforeOrdering: final,
			OrderedFinal:           ordered,
		}
	}
	return res
}

// Recommend runs a default-configured engine
func Recommend(winning []WinningItem, sets []BuiltSet) Result {
	return NewEngine(DefaultConfig()).Recommend(winning, sets)
}

func names(items []WinningItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}
