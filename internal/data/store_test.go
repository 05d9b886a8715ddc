package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostbuild/internal/build"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "ghostbuild.db"), "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var ahri = pipeline.Key{Champion: "ahri", Mode: "aram", Tier: "d2_plus", Window: "7d"}

func sampleTables() pipeline.Tables {
	return pipeline.Tables{
		Winning: []build.WinningItem{
			{Name: "A", WinRate: 0.55, PickRate: 0.30, SampleSize: 100},
			{Name: "B", WinRate: 0.60, PickRate: 0.10, SampleSize: 40},
			{Name: "C", WinRate: 0.40, PickRate: 0.50, SampleSize: 200},
		},
		Sets: []build.BuiltSet{
			{Items: []string{"A", "B", "C", "D", "E"}, SetWinRate: 0.58, SetPickRate: 0.25, SetSampleSize: 120},
			{Items: []string{"E", "D", "C", "B", "A"}, SetWinRate: 0.50, SetPickRate: 0.05, SetSampleSize: 12},
		},
		Source: "unit test",
		Icons:  map[string]string{"A": "http://img/a.png"},
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("libsql://ghost.turso.io"))
	assert.True(t, IsRemote("https://ghost.turso.io"))
	assert.False(t, IsRemote("data/ghostbuild.db"))
	assert.False(t, IsRemote(":memory:"))
}

func TestStore_ImportAndTables(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.False(t, s.HasData(ctx))
	require.NoError(t, s.ImportSnapshot(ctx, ahri, sampleTables()))
	assert.True(t, s.HasData(ctx))

	got, err := s.Tables(ctx, ahri)
	require.NoError(t, err)
	want := sampleTables()
	assert.Equal(t, want.Winning, got.Winning)
	assert.Equal(t, want.Sets, got.Sets)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.Icons, got.Icons)
	assert.Equal(t, 1, s.cache.Len())
}

func TestStore_ReimportReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ImportSnapshot(ctx, ahri, sampleTables()))
	_, err := s.Tables(ctx, ahri)
	require.NoError(t, err)

	smaller := sampleTables()
	smaller.Winning = smaller.Winning[:1]
	smaller.Sets = smaller.Sets[:1]
	require.NoError(t, s.ImportSnapshot(ctx, ahri, smaller))
	assert.Equal(t, 0, s.cache.Len())

	got, err := s.Tables(ctx, ahri)
	require.NoError(t, err)
	assert.Len(t, got.Winning, 1)
	assert.Len(t, got.Sets, 1)
}

func TestStore_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Tables(context.Background(), ahri)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestStore_ListSnapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	jinx := ahri
	jinx.Champion = "jinx"
	require.NoError(t, s.ImportSnapshot(ctx, jinx, sampleTables()))
	require.NoError(t, s.ImportSnapshot(ctx, ahri, sampleTables()))

	infos, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, ahri, infos[0].Key)
	assert.Equal(t, "jinx", infos[1].Key.Champion)
	assert.Equal(t, 3, infos[0].Winning)
	assert.Equal(t, 2, infos[0].Sets)
	assert.NotEmpty(t, infos[0].ImportedAt)
}

func TestStore_UsableAsSource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportSnapshot(ctx, ahri, sampleTables()))

	var src pipeline.Source = s
	rec, err := pipeline.Run(ctx, src, ahri, pipeline.Options{})
	require.NoError(t, err)
	assert.Len(t, rec.Build.Order, build.BuildSize)
	assert.Equal(t, "unit test", rec.Spec.Source)
}

// bundleServer exports src and serves manifest.json and data.json from it
func bundleServer(t *testing.T, src *Store, version string, tamper bool) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, err := src.Export(context.Background(), dir, version, srv.URL+"/data.json")
	require.NoError(t, err)
	if tamper {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data.json"), []byte(`{"snapshots":[]}`), 0644))
	}
	mux.Handle("/", http.FileServer(http.Dir(dir)))
	return srv
}

func TestStore_CheckForUpdates(t *testing.T) {
	ctx := context.Background()
	origin := openTestStore(t)
	require.NoError(t, origin.ImportSnapshot(ctx, ahri, sampleTables()))
	srv := bundleServer(t, origin, "25.20.1", false)

	local := openTestStore(t)
	updated, err := local.CheckForUpdates(ctx, srv.URL+"/manifest.json")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "25.20.1", local.Version())

	got, err := local.Tables(ctx, ahri)
	require.NoError(t, err)
	assert.Equal(t, sampleTables().Sets, got.Sets)

	updated, err = local.CheckForUpdates(ctx, srv.URL+"/manifest.json")
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = local.ForceUpdate(ctx, srv.URL+"/manifest.json")
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestStore_CheckForUpdates_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	origin := openTestStore(t)
	require.NoError(t, origin.ImportSnapshot(ctx, ahri, sampleTables()))
	srv := bundleServer(t, origin, "25.20.1", true)

	local := openTestStore(t)
	updated, err := local.CheckForUpdates(ctx, srv.URL+"/manifest.json")
	assert.False(t, updated)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Empty(t, local.Version())
	assert.False(t, local.HasData(ctx))
}

func TestStore_CheckForUpdates_ForceReset(t *testing.T) {
	ctx := context.Background()
	origin := openTestStore(t)
	require.NoError(t, origin.ImportSnapshot(ctx, ahri, sampleTables()))

	dir := t.TempDir()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	_, err := origin.Export(ctx, dir, "25.19.1", srv.URL+"/data.json")
	require.NoError(t, err)

	// an older version is still imported when the manifest forces a reset
	manifest := Manifest{Version: "25.19.1", DataURL: srv.URL + "/data.json", ForceReset: true}
	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) { w.Write(raw) })
	mux.Handle("/data.json", http.FileServer(http.Dir(dir)))

	local := openTestStore(t)
	require.NoError(t, local.ImportExport(ctx, &DataExport{}, "25.20.1"))

	updated, err := local.CheckForUpdates(ctx, srv.URL+"/manifest.json")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "25.19.1", local.Version())
}

func TestStore_CheckForUpdates_Errors(t *testing.T) {
	local := openTestStore(t)
	_, err := local.CheckForUpdates(context.Background(), "")
	assert.Error(t, err)

	down := httptest.NewServer(http.NotFoundHandler())
	defer down.Close()
	_, err = local.CheckForUpdates(context.Background(), down.URL+"/manifest.json")
	assert.ErrorContains(t, err, "404")
}

func TestStore_Export(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.ImportSnapshot(ctx, ahri, sampleTables()))

	dir := t.TempDir()
	m, err := s.Export(ctx, dir, "v1", "https://example.invalid/data.json")
	require.NoError(t, err)
	assert.Len(t, m.DataSha256, 64)

	raw, err := os.ReadFile(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	var export DataExport
	require.NoError(t, json.Unmarshal(raw, &export))
	require.Len(t, export.Snapshots, 1)
	assert.Equal(t, ahri, export.Snapshots[0].Key())
	assert.Equal(t, "v1", export.Version)
}

func TestStore_CacheKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	leeSin := pipeline.Key{Champion: "Lee_Sin", Mode: "aram", Tier: "d2", Window: "7d"}
	lee := pipeline.Key{Champion: "Lee", Mode: "Sin_aram", Tier: "d2", Window: "7d"}
	require.Equal(t, leeSin.Base(), lee.Base())

	other := sampleTables()
	other.Source = "other"
	require.NoError(t, s.ImportSnapshot(ctx, leeSin, sampleTables()))
	require.NoError(t, s.ImportSnapshot(ctx, lee, other))

	got, err := s.Tables(ctx, leeSin)
	require.NoError(t, err)
	assert.Equal(t, "unit test", got.Source)

	got, err = s.Tables(ctx, lee)
	require.NoError(t, err)
	assert.Equal(t, "other", got.Source)
	assert.Equal(t, 2, s.cache.Len())
}

type reportSink struct{ dropped int }

func (r *reportSink) RecordReports(reps loader.Reports) { r.dropped += reps.Dropped() }

func TestStore_ImportExport_DropsInvalidRows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	sink := &reportSink{}
	s.Recorder = sink

	export := &DataExport{Snapshots: []SnapshotExport{{
		Champion: ahri.Champion, Mode: ahri.Mode, Tier: ahri.Tier, Window: ahri.Window,
		Winning: []build.WinningItem{
			{Name: "A", WinRate: 55, PickRate: 30},
			{Name: "A", WinRate: 0.4, PickRate: 0.2},
		},
		Sets: []build.BuiltSet{
			{Items: []string{"A", "B", "C"}, SetWinRate: 58, SetPickRate: -1},
		},
	}}}
	require.NoError(t, s.ImportExport(ctx, export, "25.9.1"))

	got, err := s.Tables(ctx, ahri)
	require.NoError(t, err)
	assert.Equal(t, []build.WinningItem{{Name: "A", WinRate: 0.55, PickRate: 0.30}}, got.Winning)
	assert.Empty(t, got.Sets)
	assert.Equal(t, 2, sink.dropped)

	_, err = pipeline.Run(ctx, s, ahri, pipeline.Options{})
	assert.ErrorIs(t, err, pipeline.ErrEmptySets)
}

func TestStore_ImportSnapshot_DropsInvalidRows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tables := sampleTables()
	tables.Sets = append(tables.Sets, build.BuiltSet{Items: []string{"A", "B"}, SetWinRate: 0.5, SetPickRate: 0.1})
	require.NoError(t, s.ImportSnapshot(ctx, ahri, tables))

	got, err := s.Tables(ctx, ahri)
	require.NoError(t, err)
	assert.Equal(t, sampleTables().Sets, got.Sets)
}

func TestStore_CheckForUpdates_NumericVersionOrder(t *testing.T) {
	ctx := context.Background()
	origin := openTestStore(t)
	require.NoError(t, origin.ImportSnapshot(ctx, ahri, sampleTables()))
	older := bundleServer(t, origin, "25.9.1", false)
	newer := bundleServer(t, origin, "25.10.1", false)

	local := openTestStore(t)
	updated, err := local.CheckForUpdates(ctx, older.URL+"/manifest.json")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "25.9.1", local.Version())

	updated, err = local.CheckForUpdates(ctx, newer.URL+"/manifest.json")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "25.10.1", local.Version())

	updated, err = local.CheckForUpdates(ctx, older.URL+"/manifest.json")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, "25.10.1", local.Version())
}

func TestNewerVersion(t *testing.T) {
	tests := []struct {
		remote, local string
		want          bool
	}{
		{"25.10.1", "25.9.1", true},
		{"25.9.1", "25.10.1", false},
		{"25.20.1", "25.20.1", false},
		{"25.9", "25.9.0", false},
		{"26.1.1", "25.24.3", true},
		{"25.9.1", "", true},
		{"beta", "alpha", true},
		{"alpha", "beta", false},
	}
	for _, tt := range tests {
		t.Run(tt.remote+"_vs_"+tt.local, func(t *testing.T) {
			assert.Equal(t, tt.want, newerVersion(tt.remote, tt.local))
		})
	}
}
