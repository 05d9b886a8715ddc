package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostbuild/internal/pipeline"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

const snapshotSets = `{"data": [
  {"items": ["A","B","C","D","E"], "items_img": ["a.png","b.png"], "set_win_rate": 0.58, "set_pick_rate": "25%", "set_sample_size": 120},
  {"items": "A|B|C", "set_win_rate": 0.5, "set_pick_rate": 0.1, "set_sample_size": 3}
]}`

func TestLoadSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "winning.json", `[
  {"img": "http://x/a.png", "name": "A", "win_rate": 0.55, "pick_rate": 0.30, "sample_size": 100},
  {"name": "B", "win_rate": "60", "pick_rate": 0.10, "sample_size": null},
  {"name": "C", "win_rate": null, "pick_rate": 0.5, "sample_size": 1}
]`)
	writeFile(t, dir, "sets.json", snapshotSets)
	writeFile(t, dir, "meta.json", `{"source": "lolalytics 2026-10-01"}`)

	tables, reps, err := LoadSnapshot(dir)
	require.NoError(t, err)

	require.Len(t, tables.Winning, 2)
	assert.InDelta(t, 0.60, tables.Winning[1].WinRate, 1e-12)
	assert.Equal(t, 0, tables.Winning[1].SampleSize)
	require.Len(t, tables.Sets, 1)
	assert.InDelta(t, 0.25, tables.Sets[0].SetPickRate, 1e-12)

	assert.Equal(t, "lolalytics 2026-10-01", tables.Source)
	assert.Equal(t, "http://x/a.png", tables.Icons["A"])
	assert.Equal(t, "b.png", tables.Icons["B"])

	assert.Len(t, reps.Winning.Rejected, 1)
	assert.Len(t, reps.Sets.Rejected, 1)
}

func TestLoadSnapshot_SingleObjectAndMetaFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "winning.json", `{"name": "A", "win_rate": 0.5, "pick_rate": 0.5, "sample_size": 1}`)
	writeFile(t, dir, "sets.json", snapshotSets)
	writeFile(t, dir, "meta.json", "{\n  \"patch\": \"25.20\",\n  \"mode\": \"aram\"\n}")

	tables, _, err := LoadSnapshot(dir)
	require.NoError(t, err)
	require.Len(t, tables.Winning, 1)
	assert.Equal(t, `{"patch":"25.20","mode":"aram"}`, tables.Source)
}

func TestLoadSnapshot_NoMeta(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "winning.json", `[{"name": "A", "win_rate": 0.5, "pick_rate": 0.5, "sample_size": 1}]`)
	writeFile(t, dir, "sets.json", snapshotSets)

	tables, _, err := LoadSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, tables.Source)
}

func TestLoadSnapshot_Errors(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		_, _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("missing sets file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "winning.json", `[]`)
		_, _, err := LoadSnapshot(dir)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("scalar payload", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "winning.json", `42`)
		writeFile(t, dir, "sets.json", snapshotSets)
		_, _, err := LoadSnapshot(dir)
		assert.True(t, errors.Is(err, ErrUnsupportedPayload))
	})

	t.Run("missing column", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "winning.json", `[{"name": "A", "win_rate": 0.5}]`)
		writeFile(t, dir, "sets.json", snapshotSets)
		_, _, err := LoadSnapshot(dir)
		require.ErrorIs(t, err, ErrMissingColumn)
		assert.Contains(t, err.Error(), "pick_rate, sample_size")
	})
}

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	csvKey := pipeline.Key{Champion: "ahri", Mode: "aram", Tier: "d2_plus", Window: "7d"}
	writeFile(t, root, csvKey.Base()+"_winning.csv", "name,win_rate,pick_rate,sample_size\nA,0.55,0.3,100\n")
	writeFile(t, root, csvKey.Base()+"_sets.csv", "items,set_win_rate,set_pick_rate,set_sample_size\nA|B|C|D|E,0.58,0.25,120\n")

	snapKey := pipeline.Key{Champion: "jinx", Mode: "aram", Tier: "d2_plus", Window: "7d"}
	snapDir := filepath.Join(root, snapKey.Base())
	writeFile(t, snapDir, "winning.json", `[{"name": "Z", "win_rate": 0.5, "pick_rate": 0.5, "sample_size": 1}]`)
	writeFile(t, snapDir, "sets.json", snapshotSets)

	src := Dir{Root: root}
	ctx := context.Background()

	tables, err := src.Tables(ctx, csvKey)
	require.NoError(t, err)
	assert.Len(t, tables.Winning, 1)
	assert.Len(t, tables.Sets, 1)

	tables, err = src.Tables(ctx, snapKey)
	require.NoError(t, err)
	assert.Equal(t, "Z", tables.Winning[0].Name)

	_, err = src.Tables(ctx, pipeline.Key{Champion: "nobody"})
	assert.ErrorIs(t, err, os.ErrNotExist)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.Tables(cancelled, csvKey)
	assert.ErrorIs(t, err, context.Canceled)
}
