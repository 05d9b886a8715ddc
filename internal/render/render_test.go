package render

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostbuild/internal/build"
	"ghostbuild/internal/pipeline"
)

func sampleRecord() *pipeline.Record {
	return &pipeline.Record{
		Spec:  pipeline.Spec{Champion: "Ahri", Mode: "aram", Tier: "d2_plus", Window: "7d", Source: "test"},
		Build: pipeline.Build{Boots: "法師之靴", Order: []string{"A", "B", "C", "D", "E"}},
		Rationale: build.Rationale{
			Thresholds:  build.Thresholds{P50: 0.2, Tau: 1, Tier: build.TierPrimary},
			Supports:    []float64{1},
			TopSetsUsed: 1,
		},
	}
}

func TestBuildCard(t *testing.T) {
	card := BuildCard(sampleRecord())

	assert.True(t, strings.HasPrefix(card, "# Ahri\n"))
	assert.Contains(t, card, "**鞋子**：法師之靴")
	assert.Contains(t, card, "1. A\n2. B\n3. C\n4. D\n5. E\n")
	assert.Contains(t, card, "| Tau | 1.0000 |")
	assert.Contains(t, card, "| tier | primary |")
	assert.Contains(t, card, "Supports: 1.000")
	assert.NotContains(t, card, "repeats")
}

func TestSetsTable(t *testing.T) {
	sets := []build.BuiltSet{
		{Items: []string{"A", "B", "C", "D", "E"}, SetWinRate: 0.50, SetPickRate: 0.10, SetSampleSize: 10},
		{Items: []string{"A", "B", "C", "D", "F"}, SetWinRate: 0.60, SetPickRate: 0.05, SetSampleSize: 5},
		{Items: []string{"A", "B", "C", "D", "G"}, SetWinRate: 0.60, SetPickRate: 0.07, SetSampleSize: 9},
		{Items: []string{"A", "B"}, SetWinRate: 0.99},
	}

	t.Run("sorted by win then games", func(t *testing.T) {
		lines := strings.Split(strings.TrimSpace(SetsTable(sets, 0, nil)), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "| Set | Win | Pick | Games |", lines[0])
		assert.Equal(t, "| A / B / C / D / G | 60.00% | 7.00% | 9 |", lines[2])
		assert.Equal(t, "| A / B / C / D / F | 60.00% | 5.00% | 5 |", lines[3])
		assert.Equal(t, "| A / B / C / D / E | 50.00% | 10.00% | 10 |", lines[4])
	})

	t.Run("topK", func(t *testing.T) {
		lines := strings.Split(strings.TrimSpace(SetsTable(sets, 1, nil)), "\n")
		assert.Len(t, lines, 3)
	})

	t.Run("icons", func(t *testing.T) {
		icons := MapIcons(map[string]string{"A": "https://cdn/a.png"})
		table := SetsTable(sets[:1], 0, icons)
		assert.Contains(t, table, `<img src="https://cdn/a.png" alt="A"`)
		assert.NotContains(t, table, "A / B")
	})
}

func TestIndex(t *testing.T) {
	out := Index("ARAM 7d Build 索引", []IndexEntry{EntryFor(sampleRecord(), "Ahri_aram_d2_plus_7d_build.md")})
	assert.Equal(t,
		"# ARAM 7d Build 索引\n\n- **Ahri**｜鞋：法師之靴｜順序：`A → B → C → D → E` ｜ [卡片](Ahri_aram_d2_plus_7d_build.md)\n",
		out)
}

func TestCollectIndex(t *testing.T) {
	dir := t.TempDir()
	rec := sampleRecord()
	_, err := pipeline.SaveRecord(pipeline.RecordPath(dir, rec.Key()), rec)
	require.NoError(t, err)

	entries, err := CollectIndex(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ahri", entries[0].Champion)
	assert.Equal(t, filepath.Base(CardPath(dir, rec.Key())), entries[0].Card)
}

func TestHTML(t *testing.T) {
	out, err := HTML(SetsTable([]build.BuiltSet{
		{Items: []string{"A", "B", "C", "D", "E"}, SetWinRate: 0.5, SetPickRate: 0.1, SetSampleSize: 3},
	}, 0, nil))
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>A / B / C / D / E</td>")
}
