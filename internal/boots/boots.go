// Package boots picks the upgraded boots for a build. The engine leaves
// footwear as a placeholder; this runs afterwards over the same tables.
package boots

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ghostbuild/internal/build"
)

// Basic is the unupgraded boots item, the last-resort answer
const Basic = "鞋子"

var upgradedRe = regexp.MustCompile(`靴|護脛|(?i:greaves|shoes|steelcaps|treads|boots)`)

// basicNames never count as upgraded boots
var basicNames = map[string]bool{
	Basic:   true,
	"boots": true,
	"1001":  true,
}

// upgradedIDs are the tier-2 boots item IDs
var upgradedIDs = map[int]bool{
	3006: true, // Berserker's Greaves
	3009: true, // Boots of Swiftness
	3020: true, // Sorcerer's Shoes
	3047: true, // Plated Steelcaps
	3111: true, // Mercury's Treads
	3117: true, // Mobility Boots
	3158: true, // Ionian Boots of Lucidity
}

// IsUpgraded reports whether name looks like an upgraded boots item
func IsUpgraded(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || basicNames[strings.ToLower(name)] {
		return false
	}
	if id, err := strconv.Atoi(name); err == nil {
		return upgradedIDs[id]
	}
	return upgradedRe.MatchString(name)
}

// Choose returns the upgraded boots with the highest summed set pick rate
// across sets, falling back to the most picked upgraded boots in winning and
// finally to Basic. Ties go to the lexicographically smaller name.
func Choose(sets []build.BuiltSet, winning []build.WinningItem) string {
	if name, ok := FromSets(sets); ok {
		return name
	}
	if name, ok := FromWinning(winning); ok {
		return name
	}
	return Basic
}

// FromSets weighs each upgraded boots by set_pick_rate over every set holding it
func FromSets(sets []build.BuiltSet) (string, bool) {
	weight := make(map[string]float64)
	for _, s := range sets {
		for _, it := range s.Items {
			it = strings.TrimSpace(it)
			if IsUpgraded(it) {
				weight[it] += s.SetPickRate
			}
		}
	}
	if len(weight) == 0 {
		return "", false
	}

	names := make([]string, 0, len(weight))
	for n := range weight {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if weight[names[i]] != weight[names[j]] {
			return weight[names[i]] > weight[names[j]]
		}
		return names[i] < names[j]
	})
	return names[0], true
}

// FromWinning picks the upgraded boots with the highest pick rate
func FromWinning(winning []build.WinningItem) (string, bool) {
	var best *build.WinningItem
	for i := range winning {
		w := &winning[i]
		if !IsUpgraded(w.Name) {
			continue
		}
		if best == nil || w.PickRate > best.PickRate ||
			(w.PickRate == best.PickRate && w.Name < best.Name) {
			best = w
		}
	}
	if best == nil {
		return "", false
	}
	return best.Name, true
}
