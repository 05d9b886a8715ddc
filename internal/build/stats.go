package build

import (
	"math"
	"sort"
)

// Epsilon guards every log, ratio and clamp in the engine
const Epsilon = 1e-9

// percentile uses linear interpolation between closest ranks, q in [0,100]
func percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func median(values []float64) float64 {
	return percentile(values, 50)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func weightedMean(values, weights []float64) float64 {
	var num, den float64
	for i, v := range values {
		num += v * weights[i]
		den += weights[i]
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// logit is the log-odds of p, with p clamped to [Epsilon, 1-Epsilon]
func logit(p float64) float64 {
	p = math.Min(math.Max(p, Epsilon), 1-Epsilon)
	return math.Log(p / (1 - p))
}

// descendingRanks assigns 1-based ranks with the largest value first.
// Tied values share the average of the ranks they span.
func descendingRanks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})

	ranks := make([]float64, len(values))
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && values[idx[end]] == values[idx[start]] {
			end++
		}
		// positions start..end-1 hold ranks start+1..end
		avg := float64(start+1+end) / 2
		for k := start; k < end; k++ {
			ranks[idx[k]] = avg
		}
		start = end
	}
	return ranks
}

// avgSetWinRate averages set_win_rate over sets, 0 when there are none
func avgSetWinRate(sets []BuiltSet) float64 {
	rates := make([]float64, len(sets))
	for i, s := range sets {
		rates[i] = s.SetWinRate
	}
	return mean(rates)
}

// containing returns the sets that hold every named item
func containing(sets []BuiltSet, names []string) []BuiltSet {
	var out []BuiltSet
	for _, s := range sets {
		if s.ContainsAll(names) {
			out = append(out, s)
		}
	}
	return out
}
