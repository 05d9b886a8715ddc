package build

import "math"

const minTau = 0.5

// cooccurrence returns, per candidate, the share of topSets containing it
func cooccurrence(cands []WinningItem, topSets []BuiltSet) []ItemFrequency {
	k := float64(max(len(topSets), 1))
	freq := make([]ItemFrequency, len(cands))
	for i, c := range cands {
		cnt := 0
		for _, s := range topSets {
			if s.Contains(c.Name) {
				cnt++
			}
		}
		freq[i] = ItemFrequency{Item: c.Name, Frequency: float64(cnt) / k}
	}
	return freq
}

// FilterConsistent drops candidates that rarely appear in the representative
// loadouts. When nothing survives, the input pool is returned unchanged.
func FilterConsistent(c0 []WinningItem, topSets []BuiltSet) ([]WinningItem, float64, []ItemFrequency) {
	freq := cooccurrence(c0, topSets)

	values := make([]float64, len(freq))
	for i, f := range freq {
		values[i] = f.Frequency
	}
	medianFreq := 0.0
	if len(values) > 0 {
		medianFreq = median(values)
	}
	tau := math.Max(medianFreq, minTau)

	var c1 []WinningItem
	for i, c := range c0 {
		if freq[i].Frequency >= tau {
			c1 = append(c1, c)
		}
	}
	if len(c1) == 0 {
		c1 = append([]WinningItem(nil), c0...)
	}
	return c1, tau, freq
}
