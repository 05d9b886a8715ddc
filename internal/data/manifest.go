package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-json"

	"ghostbuild/internal/build"
	"ghostbuild/internal/pipeline"
)

// ErrChecksumMismatch means a downloaded bundle failed SHA-256 verification
var ErrChecksumMismatch = errors.New("SHA256 mismatch")

// Manifest is the remote manifest.json
type Manifest struct {
	Version    string `json:"version"`
	DataURL    string `json:"data_url"`
	DataSha256 string `json:"data_sha256"`
	UpdatedAt  string `json:"updated_at"`
	ForceReset bool   `json:"force_reset"`
}

// DataExport is a bundle of snapshots, the data.json a manifest points at
type DataExport struct {
	Version     string           `json:"version"`
	GeneratedAt string           `json:"generatedAt"`
	Snapshots   []SnapshotExport `json:"snapshots"`
}

// SnapshotExport is one key's tables inside a bundle
type SnapshotExport struct {
	Champion string              `json:"champion"`
	Mode     string              `json:"mode"`
	Tier     string              `json:"tier"`
	Window   string              `json:"window"`
	Source   string              `json:"source,omitempty"`
	Winning  []build.WinningItem `json:"winning"`
	Sets     []build.BuiltSet    `json:"sets"`
}

// Key returns the run key of the snapshot
func (e SnapshotExport) Key() pipeline.Key {
	return pipeline.Key{Champion: e.Champion, Mode: e.Mode, Tier: e.Tier, Window: e.Window}
}

// CheckForUpdates fetches the manifest and imports its bundle when the
// remote version is newer than the local one. It reports whether an import
// happened.
func (s *Store) CheckForUpdates(ctx context.Context, manifestURL string) (bool, error) {
	if manifestURL == "" {
		return false, fmt.Errorf("manifest URL not configured")
	}
	s.log.Debug().Str("url", manifestURL).Msg("checking for updates")

	var manifest Manifest
	if err := fetchJSON(ctx, manifestURL, 10*time.Second, &manifest); err != nil {
		return false, fmt.Errorf("failed to fetch manifest: %w", err)
	}

	s.log.Info().
		Str("remote", manifest.Version).
		Str("local", s.version).
		Bool("force_reset", manifest.ForceReset).
		Msg("manifest fetched")

	if manifest.ForceReset {
		s.clearVersion(ctx)
	}

	if manifest.Version != "" && !newerVersion(manifest.Version, s.version) {
		s.log.Info().Msg("local data is up to date")
		return false, nil
	}

	if err := s.downloadAndImport(ctx, manifest); err != nil {
		return false, fmt.Errorf("failed to download and import data: %w", err)
	}
	s.loadVersion(ctx)
	s.log.Info().Str("version", s.version).Msg("store updated")
	return true, nil
}

// newerVersion reports whether remote is a later data version than local.
// Dotted versions compare numerically segment by segment (25.10.1 > 25.9.1);
// strings semver cannot parse fall back to plain string order.
func newerVersion(remote, local string) bool {
	if local == "" {
		return true
	}
	rv, errRemote := semver.NewVersion(remote)
	lv, errLocal := semver.NewVersion(local)
	if errRemote != nil || errLocal != nil {
		return remote > local
	}
	return rv.GreaterThan(lv)
}

// ForceUpdate clears the local version and re-imports the remote bundle
func (s *Store) ForceUpdate(ctx context.Context, manifestURL string) (bool, error) {
	s.clearVersion(ctx)
	return s.CheckForUpdates(ctx, manifestURL)
}

func (s *Store) clearVersion(ctx context.Context) {
	s.db.ExecContext(ctx, "DELETE FROM data_version")
	s.version = ""
}

func (s *Store) downloadAndImport(ctx context.Context, m Manifest) error {
	body, err := fetchBody(ctx, m.DataURL, 60*time.Second)
	if err != nil {
		return fmt.Errorf("failed to fetch data: %w", err)
	}

	if m.DataSha256 != "" {
		sum := sha256.Sum256(body)
		actual := hex.EncodeToString(sum[:])
		if actual != m.DataSha256 {
			return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, m.DataSha256, actual)
		}
		s.log.Debug().Msg("SHA256 verified")
	}

	var export DataExport
	if err := json.Unmarshal(body, &export); err != nil {
		return fmt.Errorf("failed to parse data: %w", err)
	}

	version := m.Version
	if version == "" {
		version = export.Version
	}
	return s.ImportExport(ctx, &export, version)
}

// ImportExport stores every snapshot of a bundle and records version, all
// in one transaction
func (s *Store) ImportExport(ctx context.Context, export *DataExport, version string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, snap := range export.Snapshots {
		tables := s.clean(snap.Key(), pipeline.Tables{Winning: snap.Winning, Sets: snap.Sets, Source: snap.Source})
		if err := importTables(ctx, tx, snap.Key(), tables); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO data_version (id, version, updated_at)
		VALUES (1, ?, ?)
	`, version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to update version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.version = version
	s.cache.Clear()

	s.log.Info().Int("snapshots", len(export.Snapshots)).Str("version", version).Msg("bundle imported")
	return nil
}

// Export writes every stored snapshot to dir/data.json and a matching
// dir/manifest.json. dataURL is copied into the manifest as is.
func (s *Store) Export(ctx context.Context, dir, version, dataURL string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	infos, err := s.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	export := DataExport{Version: version, GeneratedAt: now}
	for _, info := range infos {
		tables, err := s.Tables(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		export.Snapshots = append(export.Snapshots, SnapshotExport{
			Champion: info.Key.Champion,
			Mode:     info.Key.Mode,
			Tier:     info.Key.Tier,
			Window:   info.Key.Window,
			Source:   tables.Source,
			Winning:  tables.Winning,
			Sets:     tables.Sets,
		})
	}

	dataFile, err := os.Create(filepath.Join(dir, "data.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to create data.json: %w", err)
	}
	defer dataFile.Close()

	hasher := sha256.New()
	enc := json.NewEncoder(io.MultiWriter(dataFile, hasher))
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return nil, fmt.Errorf("failed to write data.json: %w", err)
	}

	manifest := &Manifest{
		Version:    version,
		DataURL:    dataURL,
		DataSha256: hex.EncodeToString(hasher.Sum(nil)),
		UpdatedAt:  now,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest.json: %w", err)
	}

	s.log.Info().Int("snapshots", len(export.Snapshots)).Str("sha256", manifest.DataSha256).Msg("bundle exported")
	return manifest, nil
}

func fetchBody(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func fetchJSON(ctx context.Context, url string, timeout time.Duration, v any) error {
	body, err := fetchBody(ctx, url, timeout)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
