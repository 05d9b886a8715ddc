package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterConsistent(t *testing.T) {
	topSets := []BuiltSet{
		{Items: []string{"A", "B", "C"}},
		{Items: []string{"A", "B", "D"}},
		{Items: []string{"A", "E", "F"}},
		{Items: []string{"A", "B", "G"}},
	}
	c0 := []WinningItem{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "Z"}}

	c1, tau, freq := FilterConsistent(c0, topSets)

	// frequencies: A 1.0, B .75, C .25, Z 0 -> median .5
	assert.InDelta(t, 0.5, tau, 1e-12)
	assert.Equal(t, []string{"A", "B"}, names(c1))
	assert.Len(t, freq, 4)
	assert.Equal(t, ItemFrequency{Item: "B", Frequency: 0.75}, freq[1])
}

func TestFilterConsistent_TauFloor(t *testing.T) {
	topSets := []BuiltSet{
		{Items: []string{"A"}},
		{Items: []string{"B"}},
		{Items: []string{"C"}},
	}
	c0 := []WinningItem{{Name: "A"}, {Name: "B"}, {Name: "C"}}

	c1, tau, _ := FilterConsistent(c0, topSets)
	assert.Equal(t, 0.5, tau)
	// nobody reaches .5, so the input pool comes back
	assert.Equal(t, []string{"A", "B", "C"}, names(c1))
}

func TestFilterConsistent_NoTopSets(t *testing.T) {
	c0 := []WinningItem{{Name: "A"}}
	c1, tau, freq := FilterConsistent(c0, nil)
	assert.Equal(t, 0.5, tau)
	assert.Equal(t, []string{"A"}, names(c1))
	assert.Equal(t, 0.0, freq[0].Frequency)
}
