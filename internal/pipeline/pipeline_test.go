package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostbuild/internal/boots"
	"ghostbuild/internal/build"
)

func sampleTables() Tables {
	return Tables{
		Winning: []build.WinningItem{
			{Name: "A", WinRate: 0.55, PickRate: 0.30, SampleSize: 100},
			{Name: "B", WinRate: 0.60, PickRate: 0.10, SampleSize: 40},
			{Name: "C", WinRate: 0.40, PickRate: 0.50, SampleSize: 200},
		},
		Sets: []build.BuiltSet{
			{Items: []string{"A", "B", "C", "D", "E"}, SetWinRate: 0.58, SetPickRate: 0.25, SetSampleSize: 120},
		},
		Source: "unit",
	}
}

type fakeRecorder struct {
	tiers []build.SelectorTier
}

func (f *fakeRecorder) ObserveRecommendation(tier build.SelectorTier, _ time.Duration) {
	f.tiers = append(f.tiers, tier)
}

func TestRun(t *testing.T) {
	key := Key{Champion: "ahri", Mode: "aram", Tier: "d2_plus", Window: "7d"}
	var gotKey Key
	src := SourceFunc(func(_ context.Context, k Key) (Tables, error) {
		gotKey = k
		return sampleTables(), nil
	})
	rec := &fakeRecorder{}

	out, err := Run(context.Background(), src, key, Options{Recorder: rec})
	require.NoError(t, err)

	assert.Equal(t, key, gotKey)
	assert.Equal(t, key, out.Key())
	assert.Equal(t, "unit", out.Spec.Source)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, out.Build.Order)
	assert.Equal(t, boots.Basic, out.Build.Boots)
	assert.Equal(t, []build.SelectorTier{build.TierPrimary}, rec.tiers)
}

func TestRecommend_BootsPlaceholderKept(t *testing.T) {
	out, err := Recommend(Key{Mode: "aram"}, sampleTables(), Options{KeepBootsPlaceholder: true})
	require.NoError(t, err)
	assert.Equal(t, build.DefaultBoots, out.Build.Boots)
}

func TestRecommend_BootsFromSets(t *testing.T) {
	tables := sampleTables()
	tables.Sets = append(tables.Sets, build.BuiltSet{
		Items:       []string{"A", "B", "C", "D", "明朗之靴"},
		SetWinRate:  0.5,
		SetPickRate: 0.05,
	})
	out, err := Recommend(Key{}, tables, Options{})
	require.NoError(t, err)
	assert.Equal(t, "明朗之靴", out.Build.Boots)
}

func TestRecommend_EmptyTables(t *testing.T) {
	tables := sampleTables()
	tables.Winning = nil
	_, err := Recommend(Key{Champion: "x"}, tables, Options{})
	assert.True(t, errors.Is(err, ErrEmptyWinning))

	tables = sampleTables()
	tables.Sets = nil
	_, err = Recommend(Key{Champion: "x"}, tables, Options{})
	assert.True(t, errors.Is(err, ErrEmptySets))
}

func TestRun_SourceError(t *testing.T) {
	boom := errors.New("boom")
	src := SourceFunc(func(context.Context, Key) (Tables, error) { return Tables{}, boom })
	_, err := Run(context.Background(), src, Key{Champion: "x"}, Options{})
	assert.ErrorIs(t, err, boom)
}

func TestChain(t *testing.T) {
	miss := errors.New("miss")
	missing := SourceFunc(func(context.Context, Key) (Tables, error) { return Tables{}, miss })
	hit := SourceFunc(func(context.Context, Key) (Tables, error) { return sampleTables(), nil })

	tables, err := Chain{missing, hit}.Tables(context.Background(), Key{})
	require.NoError(t, err)
	assert.Equal(t, "unit", tables.Source)

	_, err = Chain{missing, missing}.Tables(context.Background(), Key{})
	assert.ErrorIs(t, err, miss)

	_, err = Chain{}.Tables(context.Background(), Key{})
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	rec, err := Recommend(Key{Champion: "阿璃", Mode: "aram", Tier: "d2_plus", Window: "7d"}, sampleTables(), Options{
		Engine: build.Config{Explain: true},
	})
	require.NoError(t, err)

	var first, second bytes.Buffer
	sum1, err := WriteJSON(&first, rec)
	require.NoError(t, err)
	sum2, err := WriteJSON(&second, rec)
	require.NoError(t, err)

	assert.Equal(t, sum1, sum2)
	assert.Len(t, sum1, 64)
	assert.Equal(t, first.String(), second.String())

	out := first.String()
	assert.Contains(t, out, `"champion": "阿璃"`)
	assert.Contains(t, out, "\n  \"build\": {")
	assert.Contains(t, out, `"dynamic_thresholds"`)
	assert.Contains(t, out, `"explain"`)
}

func TestSaveAndReadRecord(t *testing.T) {
	key := Key{Champion: "ahri", Mode: "aram", Tier: "d2_plus", Window: "7d"}
	rec, err := Recommend(key, sampleTables(), Options{})
	require.NoError(t, err)

	path := RecordPath(filepath.Join(t.TempDir(), "nested"), key)
	assert.True(t, strings.HasSuffix(path, "ahri_aram_d2_plus_7d_build.json"))

	sum, err := SaveRecord(path, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, sum)

	back, err := ReadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Build, back.Build)
	assert.Equal(t, rec.Spec, back.Spec)
}

func TestKeyBase(t *testing.T) {
	k := Key{Champion: "jinx", Mode: "aram", Tier: "emerald_plus", Window: "14d"}
	assert.Equal(t, "jinx_aram_emerald_plus_14d", k.Base())
	assert.Equal(t, k.Base(), k.String())
}
