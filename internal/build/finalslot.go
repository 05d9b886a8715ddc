package build

import "sort"

// ChooseFinalSlot picks the next item conditioned on the current selection.
// It ranks the remaining candidates by their pick share and win rate within
// the sets that already hold the selection; ties fall to higher lift, then
// name. ok is false when there is no candidate to choose from.
func ChooseFinalSlot(selected []string, remaining []WinningItem, topSets []BuiltSet) (string, []SlotCandidate, bool) {
	if len(remaining) == 0 {
		return "", nil, false
	}

	condSets := containing(topSets, selected)
	if len(condSets) == 0 {
		condSets = topSets
	}

	totalPick := Epsilon
	for _, s := range condSets {
		totalPick += s.SetPickRate
	}

	stats := make([]SlotCandidate, len(remaining))
	picks := make([]float64, len(remaining))
	wins := make([]float64, len(remaining))
	for i, w := range remaining {
		var pick float64
		var with, without []BuiltSet
		for _, s := range condSets {
			if s.Contains(w.Name) {
				pick += s.SetPickRate
				with = append(with, s)
			} else {
				without = append(without, s)
			}
		}
		winWith := avgSetWinRate(with)
		winWithout := avgSetWinRate(without)
		stats[i] = SlotCandidate{
			Item:      w.Name,
			PickShare: pick / totalPick,
			WinWith:   winWith,
			Lift:      (winWith + Epsilon) / (winWithout + Epsilon),
		}
		picks[i] = stats[i].PickShare
		wins[i] = winWith
	}

	rankPick := descendingRanks(picks)
	rankWin := descendingRanks(wins)
	for i := range stats {
		stats[i].RankPick = rankPick[i]
		stats[i].RankWin = rankWin[i]
		stats[i].Combined = 0.5/rankPick[i] + 0.5/rankWin[i]
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Combined != stats[j].Combined {
			return stats[i].Combined > stats[j].Combined
		}
		if stats[i].Lift != stats[j].Lift {
			return stats[i].Lift > stats[j].Lift
		}
		return stats[i].Item < stats[j].Item
	})
	return stats[0].Item, stats, true
}
