package build

import "sort"

// BuildSize is the number of items in a recommended loadout
const BuildSize = 5

const (
	padFromWinning = "winning"
	padFromTopSets = "top_sets"
	padFromSets    = "sets"
	padRepeat      = "repeat"
)

// Complete pads the selection to BuildSize items. It draws from the full
// winning table by win_rate × pick_rate first, then from item names seen in
// the representative loadouts and finally in all loadouts, weighted by
// summed pick rate. When fewer than BuildSize distinct names exist at all,
// the selection is cycled and degenerate is true.
func Complete(selected []string, winning []WinningItem, topSets, allSets []BuiltSet) (out []string, pads []Padding, degenerate bool) {
	out = append([]string(nil), selected...)
	add := func(name, source string) {
		if len(out) >= BuildSize || name == "" || contains(out, name) {
			return
		}
		out = append(out, name)
		pads = append(pads, Padding{Item: name, Source: source})
	}

	for _, w := range byProduct(winning) {
		add(w.Name, padFromWinning)
	}
	for _, name := range namesByPick(topSets) {
		add(name, padFromTopSets)
	}
	for _, name := range namesByPick(allSets) {
		add(name, padFromSets)
	}

	if len(out) < BuildSize && len(out) > 0 {
		degenerate = true
		for i := 0; len(out) < BuildSize; i++ {
			out = append(out, out[i])
			pads = append(pads, Padding{Item: out[i], Source: padRepeat})
		}
	}
	return out, pads, degenerate
}

// namesByPick lists every item name in sets by summed set_pick_rate, ties by name
func namesByPick(sets []BuiltSet) []string {
	weight := make(map[string]float64)
	var names []string
	for _, s := range sets {
		for _, it := range s.Items {
			if _, seen := weight[it]; !seen {
				names = append(names, it)
			}
			weight[it] += s.SetPickRate
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		if weight[names[i]] != weight[names[j]] {
			return weight[names[i]] > weight[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// OrderByPosition sorts the final items by their pick-rate-weighted average
// 1-based position across the loadouts that contain all of them. With no
// such loadout the order is returned unchanged. Items without a position
// sort last; ties keep their current order.
func OrderByPosition(final []string, topSets []BuiltSet) []string {
	ordered := append([]string(nil), final...)
	containAll := containing(topSets, final)
	if len(containAll) == 0 {
		return ordered
	}

	var unique []string
	for _, name := range final {
		if !contains(unique, name) {
			unique = append(unique, name)
		}
	}

	posSum := make(map[string]float64, len(unique))
	weightSum := make(map[string]float64, len(unique))
	for _, s := range containAll {
		for _, name := range unique {
			if idx := s.Position(name); idx > 0 {
				posSum[name] += float64(idx) * s.SetPickRate
				weightSum[name] += s.SetPickRate
			}
		}
	}

	avgPos := func(name string) (float64, bool) {
		w := weightSum[name]
		if w <= 0 {
			return 0, false
		}
		return posSum[name] / w, true
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		pi, oki := avgPos(ordered[i])
		pj, okj := avgPos(ordered[j])
		if oki != okj {
			return oki
		}
		return pi < pj
	})
	return ordered
}
