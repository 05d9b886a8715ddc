package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_PaddingSources(t *testing.T) {
	winning := []WinningItem{
		{Name: "A", WinRate: 0.5, PickRate: 0.5},
		{Name: "B", WinRate: 0.5, PickRate: 0.2},
		{Name: "C", WinRate: 0.5, PickRate: 0.4},
	}
	topSets := []BuiltSet{{Items: []string{"A", "D"}, SetPickRate: 0.3}}
	allSets := []BuiltSet{
		{Items: []string{"A", "D"}, SetPickRate: 0.3},
		{Items: []string{"F"}, SetPickRate: 0.1},
		{Items: []string{"E"}, SetPickRate: 0.2},
	}

	out, pads, degenerate := Complete([]string{"A"}, winning, topSets, allSets)

	assert.False(t, degenerate)
	assert.Equal(t, []string{"A", "C", "B", "D", "E"}, out)
	assert.Equal(t, []Padding{
		{Item: "C", Source: "winning"},
		{Item: "B", Source: "winning"},
		{Item: "D", Source: "top_sets"},
		{Item: "E", Source: "sets"},
	}, pads)
}

func TestComplete_AlreadyFull(t *testing.T) {
	sel := []string{"a", "b", "c", "d", "e"}
	out, pads, degenerate := Complete(sel, []WinningItem{{Name: "z", PickRate: 1, WinRate: 1}}, nil, nil)
	assert.Equal(t, sel, out)
	assert.Empty(t, pads)
	assert.False(t, degenerate)
}

func TestComplete_Degenerate(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		want     []string
	}{
		{"single", []string{"X"}, []string{"X", "X", "X", "X", "X"}},
		{"pair", []string{"X", "Y"}, []string{"X", "Y", "X", "Y", "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, pads, degenerate := Complete(tt.selected, nil, nil, nil)
			require.True(t, degenerate)
			require.Equal(t, tt.want, out)
			for _, p := range pads {
				require.Equal(t, "repeat", p.Source)
			}
		})
	}
}

func TestNamesByPick(t *testing.T) {
	sets := []BuiltSet{
		{Items: []string{"b", "a"}, SetPickRate: 0.2},
		{Items: []string{"c", "a"}, SetPickRate: 0.1},
		{Items: []string{"d"}, SetPickRate: 0.2},
	}
	// a .3, b .2, d .2, c .1
	assert.Equal(t, []string{"a", "b", "d", "c"}, namesByPick(sets))
}

func TestOrderByPosition(t *testing.T) {
	topSets := []BuiltSet{
		{Items: []string{"A", "B", "C"}, SetPickRate: 0.6},
		{Items: []string{"B", "A", "C"}, SetPickRate: 0.2},
		{Items: []string{"C", "A"}, SetPickRate: 0.9},
	}

	tests := []struct {
		name  string
		final []string
		sets  []BuiltSet
		want  []string
	}{
		{"weighted positions", []string{"C", "A", "B"}, topSets, []string{"A", "B", "C"}},
		{"no covering set", []string{"C", "A", "Q"}, topSets, []string{"C", "A", "Q"}},
		{"no sets", []string{"B", "A"}, nil, []string{"B", "A"}},
		{
			"zero pick weight keeps order",
			[]string{"B", "A"},
			[]BuiltSet{{Items: []string{"A", "B"}, SetPickRate: 0}},
			[]string{"B", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderByPosition(tt.final, tt.sets))
		})
	}
}

func TestOrderByPosition_RepeatedNames(t *testing.T) {
	sets := []BuiltSet{{Items: []string{"Y", "X"}, SetPickRate: 0.5}}
	got := OrderByPosition([]string{"X", "Y", "X", "Y", "X"}, sets)
	assert.Equal(t, []string{"Y", "Y", "X", "X", "X"}, got)
}
