package build

import "sort"

const (
	DefaultTopK  = 50
	DefaultCover = 0.80
)

// SampleTopSets picks the representative loadouts: sets ordered by sample
// size then pick rate, accumulated until k sets are taken or the summed pick
// rate reaches cover. Equal keys keep their input order.
func SampleTopSets(sets []BuiltSet, k int, cover float64) []BuiltSet {
	if len(sets) == 0 {
		return nil
	}

	ordered := append([]BuiltSet(nil), sets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SetSampleSize != ordered[j].SetSampleSize {
			return ordered[i].SetSampleSize > ordered[j].SetSampleSize
		}
		return ordered[i].SetPickRate > ordered[j].SetPickRate
	})

	var out []BuiltSet
	cumPick := 0.0
	for _, s := range ordered {
		out = append(out, s)
		cumPick += s.SetPickRate
		if len(out) >= k || cumPick >= cover {
			break
		}
	}
	return out
}
