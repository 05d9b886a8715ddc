package build

import (
	"math"
	"sort"
)

const (
	minPickCut      = 0.10
	minLoosePickCut = 0.05
	coldMultPrimary = 0.50
	coldMultLoose   = 0.30
	topProductLimit = 8
)

// selectAttempt is one tagged try of the candidate selector
type selectAttempt struct {
	tier     SelectorTier
	pickCut  float64
	winCut   float64
	coldMult float64
}

// computeThresholds derives the percentile cuts for a winning table
func computeThresholds(winning []WinningItem) Thresholds {
	picks := make([]float64, len(winning))
	wins := make([]float64, len(winning))
	weights := make([]float64, len(winning))
	maxPick := 0.0
	for i, w := range winning {
		picks[i] = w.PickRate
		wins[i] = w.WinRate
		weights[i] = math.Max(float64(w.SampleSize), 1)
		if i == 0 || w.PickRate > maxPick {
			maxPick = w.PickRate
		}
	}

	t := Thresholds{
		P25:          percentile(picks, 25),
		P50:          percentile(picks, 50),
		P75:          percentile(picks, 75),
		W50:          percentile(wins, 50),
		W75:          percentile(wins, 75),
		GlobalAvgWin: 0.5,
		MaxPick:      maxPick,
	}
	if len(winning) > 0 {
		t.GlobalAvgWin = weightedMean(wins, weights)
	}
	t.PickCut = math.Max(t.P50, minPickCut)
	t.WinCut = math.Max(t.W50, t.GlobalAvgWin)
	return t
}

// SelectCandidates builds the initial candidate pool C0. The result is
// nonempty whenever winning is nonempty.
func SelectCandidates(winning []WinningItem) ([]WinningItem, Thresholds) {
	t := computeThresholds(winning)

	attempts := []selectAttempt{
		{tier: TierPrimary, pickCut: t.PickCut, winCut: t.WinCut, coldMult: coldMultPrimary},
		{tier: TierLoosened, pickCut: math.Max(t.P25, minLoosePickCut), winCut: t.W50, coldMult: coldMultLoose},
	}
	for _, a := range attempts {
		if c := selectBy(winning, t, a); len(c) > 0 {
			t.Tier = a.tier
			return c, t
		}
	}

	t.Tier = TierTopProduct
	return topByProduct(winning, topProductLimit), t
}

func selectBy(winning []WinningItem, t Thresholds, a selectAttempt) []WinningItem {
	var out []WinningItem
	for _, w := range winning {
		base := w.PickRate >= a.pickCut && w.WinRate >= a.winCut
		coldRescue := w.WinRate >= t.W75 && w.PickRate >= a.coldMult*t.MaxPick
		if base || coldRescue {
			out = append(out, w)
		}
	}
	return out
}

// topByProduct returns up to n items by win_rate × pick_rate, ties by name
func topByProduct(winning []WinningItem, n int) []WinningItem {
	sorted := byProduct(winning)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func byProduct(winning []WinningItem) []WinningItem {
	sorted := append([]WinningItem(nil), winning...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi := sorted[i].WinRate * sorted[i].PickRate
		pj := sorted[j].WinRate * sorted[j].PickRate
		if pi != pj {
			return pi > pj
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}
