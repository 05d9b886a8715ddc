package build

import (
	"math"
	"sort"
)

const (
	coreSize       = 4
	minSupportCut  = 0.25
	liftOverride   = 1.02
	missingWeight  = 1e-6
	winRateWeight  = 0.6
	pickRateWeight = 0.4
)

// scoredItem pairs a candidate with its greedy score
type scoredItem struct {
	WinningItem
	score float64
}

// presenceWeights computes each candidate's share of sample-weighted
// presence across topSets
func presenceWeights(cands []WinningItem, topSets []BuiltSet) map[string]float64 {
	total := Epsilon
	for _, s := range topSets {
		total += float64(s.SetSampleSize)
	}
	weights := make(map[string]float64, len(cands))
	for _, c := range cands {
		var sum float64
		for _, s := range topSets {
			if s.Contains(c.Name) {
				sum += float64(s.SetSampleSize)
			}
		}
		weights[c.Name] = sum / total
	}
	return weights
}

func itemScore(w WinningItem, weight float64) float64 {
	return winRateWeight*logit(w.WinRate) +
		pickRateWeight*math.Log(math.Max(w.PickRate, Epsilon)) +
		math.Log(math.Max(weight, Epsilon))
}

// rankCandidates sorts candidates by score descending, ties by name
func rankCandidates(cands []WinningItem, topSets []BuiltSet) []scoredItem {
	weights := presenceWeights(cands, topSets)
	ranked := make([]scoredItem, len(cands))
	for i, c := range cands {
		weight, ok := weights[c.Name]
		if !ok {
			weight = missingWeight
		}
		ranked[i] = scoredItem{WinningItem: c, score: itemScore(c, weight)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// support is the share of topSets containing every name in trial
func support(trial []string, topSets []BuiltSet) (float64, []BuiltSet) {
	sub := containing(topSets, trial)
	return float64(len(sub)) / float64(max(len(topSets), 1)), sub
}

// coreResult is the output of the greedy slot builder
type coreResult struct {
	selected  []string
	supports  []float64
	decisions []Decision
}

// buildCore walks ranked candidates and grows the selection to at most four
// items. A trial is accepted when its support clears the running cut, or
// when the item scores positive and lifts the win rate of matching sets.
func buildCore(ranked []scoredItem, topSets []BuiltSet) coreResult {
	var res coreResult
	for _, c := range ranked {
		if len(res.selected) >= coreSize {
			break
		}
		if contains(res.selected, c.Name) {
			continue
		}

		trial := append(append([]string(nil), res.selected...), c.Name)
		sup, subSets := support(trial, topSets)

		cut := 1.0
		if len(res.supports) > 0 {
			cut = median(res.supports)
		}
		cut = math.Max(minSupportCut, cut)

		d := Decision{Item: c.Name, Score: c.score, Support: sup, Cut: cut, Action: ActionAccept}
		if sup < cut {
			_, baseSets := support(res.selected, topSets)
			lift := (avgSetWinRate(subSets) + Epsilon) / (avgSetWinRate(baseSets) + Epsilon)
			d.Lift = lift
			if c.score > 0 && lift > liftOverride {
				d.Action = ActionAcceptByLift
			} else {
				d.Action = ActionReject
			}
		}

		if d.Action != ActionReject {
			res.selected = trial
			res.supports = append(res.supports, sup)
		}
		res.decisions = append(res.decisions, d)
	}
	return res
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
