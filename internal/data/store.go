// Package data is the local snapshot store: SQLite on disk, or a Turso
// (libSQL) database when the DSN is a libsql:// or https:// URL. It keeps
// the two input tables per (champion, mode, tier, window) key and can pull
// new snapshot bundles from a remote manifest.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"ghostbuild/internal/build"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
)

// ErrSnapshotNotFound means the store holds no tables for a key
var ErrSnapshotNotFound = errors.New("snapshot not found")

// itemSep joins set items in the built_sets.items column
const itemSep = "|"

// Store manages the snapshot database
type Store struct {
	db      *sql.DB
	remote  bool
	cache   *QueryCache
	loader  *loader.Loader
	log     zerolog.Logger
	version string

	// Recorder, when set, receives the row reports of every import
	Recorder loader.ReportRecorder
}

// SnapshotInfo summarizes one stored key
type SnapshotInfo struct {
	Key        pipeline.Key `json:"key"`
	Source     string       `json:"source"`
	ImportedAt string       `json:"imported_at"`
	Winning    int          `json:"winning"`
	Sets       int          `json:"sets"`
}

// IsRemote reports whether dsn points at a libSQL server
func IsRemote(dsn string) bool {
	for _, p := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, p) {
			return true
		}
	}
	return false
}

// Open connects to dsn and creates the schema. authToken is only used for
// remote databases.
func Open(ctx context.Context, dsn, authToken string, log zerolog.Logger) (*Store, error) {
	var (
		db     *sql.DB
		err    error
		remote = IsRemote(dsn)
	)

	if remote {
		connStr := dsn
		if authToken != "" {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			connStr = dsn + sep + "authToken=" + authToken
		}
		db, err = sql.Open("libsql", connStr)
	} else {
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create db directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if !remote {
		// a single connection serializes writers and keeps :memory: shared
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		remote: remote,
		cache:  NewQueryCache(),
		loader: loader.New(loader.WithLogger(log)),
		log:    log,
	}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.loadVersion(ctx)

	log.Info().Bool("remote", remote).Str("version", s.version).Msg("store opened")
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if !s.remote {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := s.db.ExecContext(ctx, pragma); err != nil {
				return fmt.Errorf("failed to configure sqlite: %w", err)
			}
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS data_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshots (
			champion TEXT NOT NULL,
			mode TEXT NOT NULL,
			tier TEXT NOT NULL,
			time_window TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			imported_at TEXT NOT NULL,
			PRIMARY KEY (champion, mode, tier, time_window)
		);

		CREATE TABLE IF NOT EXISTS winning_items (
			champion TEXT NOT NULL,
			mode TEXT NOT NULL,
			tier TEXT NOT NULL,
			time_window TEXT NOT NULL,
			row_idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			win_rate REAL NOT NULL,
			pick_rate REAL NOT NULL,
			sample_size INTEGER NOT NULL DEFAULT 0,
			img TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (champion, mode, tier, time_window, row_idx)
		);

		CREATE TABLE IF NOT EXISTS built_sets (
			champion TEXT NOT NULL,
			mode TEXT NOT NULL,
			tier TEXT NOT NULL,
			time_window TEXT NOT NULL,
			row_idx INTEGER NOT NULL,
			items TEXT NOT NULL,
			set_win_rate REAL NOT NULL,
			set_pick_rate REAL NOT NULL,
			set_sample_size INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (champion, mode, tier, time_window, row_idx)
		);
	`
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) loadVersion(ctx context.Context) {
	var v string
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM data_version WHERE id = 1").Scan(&v); err == nil {
		s.version = v
	} else {
		s.version = ""
	}
}

// Version returns the version of the last imported bundle
func (s *Store) Version() string {
	return s.version
}

// DB returns the underlying connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// ImportSnapshot replaces the tables stored for key in one transaction
func (s *Store) ImportSnapshot(ctx context.Context, key pipeline.Key, tables pipeline.Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tables = s.clean(key, tables)
	if err := importTables(ctx, tx, key, tables); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.cache.Clear()
	s.log.Info().
		Str("key", key.Base()).
		Int("winning", len(tables.Winning)).
		Int("sets", len(tables.Sets)).
		Msg("snapshot imported")
	return nil
}

// clean drops rows the loader rules reject, so nothing stored can reach the
// engine unchecked
func (s *Store) clean(key pipeline.Key, tables pipeline.Tables) pipeline.Tables {
	cleaned, reps := s.loader.CleanTables(tables)
	if s.Recorder != nil {
		s.Recorder.RecordReports(reps)
	}
	if n := reps.Dropped(); n > 0 {
		s.log.Warn().
			Str("key", key.Base()).
			Int("dropped", n).
			Str("winning", reps.Winning.String()).
			Str("sets", reps.Sets.String()).
			Msg("rows dropped before import")
	}
	return cleaned
}

func importTables(ctx context.Context, tx *sql.Tx, key pipeline.Key, tables pipeline.Tables) error {
	args := []any{key.Champion, key.Mode, key.Tier, key.Window}
	for _, table := range []string{"snapshots", "winning_items", "built_sets"} {
		q := fmt.Sprintf("DELETE FROM %s WHERE champion = ? AND mode = ? AND tier = ? AND time_window = ?", table)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (champion, mode, tier, time_window, source, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, key.Champion, key.Mode, key.Tier, key.Window, tables.Source, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmtWin, err := tx.PrepareContext(ctx, `
		INSERT INTO winning_items (champion, mode, tier, time_window, row_idx, name, win_rate, pick_rate, sample_size, img)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare winning_items statement: %w", err)
	}
	defer stmtWin.Close()

	for i, w := range tables.Winning {
		if _, err := stmtWin.ExecContext(ctx, key.Champion, key.Mode, key.Tier, key.Window,
			i, w.Name, w.WinRate, w.PickRate, w.SampleSize, tables.Icons[w.Name]); err != nil {
			return fmt.Errorf("failed to insert winning_items: %w", err)
		}
	}

	stmtSets, err := tx.PrepareContext(ctx, `
		INSERT INTO built_sets (champion, mode, tier, time_window, row_idx, items, set_win_rate, set_pick_rate, set_sample_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare built_sets statement: %w", err)
	}
	defer stmtSets.Close()

	for i, set := range tables.Sets {
		if _, err := stmtSets.ExecContext(ctx, key.Champion, key.Mode, key.Tier, key.Window,
			i, strings.Join(set.Items, itemSep), set.SetWinRate, set.SetPickRate, set.SetSampleSize); err != nil {
			return fmt.Errorf("failed to insert built_sets: %w", err)
		}
	}
	return nil
}

// Tables implements pipeline.Source. Results are cached until the next import.
func (s *Store) Tables(ctx context.Context, key pipeline.Key) (pipeline.Tables, error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	var source string
	err := s.db.QueryRowContext(ctx, `
		SELECT source FROM snapshots
		WHERE champion = ? AND mode = ? AND tier = ? AND time_window = ?
	`, key.Champion, key.Mode, key.Tier, key.Window).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.Tables{}, fmt.Errorf("%s: %w", key.Base(), ErrSnapshotNotFound)
	}
	if err != nil {
		return pipeline.Tables{}, fmt.Errorf("failed to query snapshot: %w", err)
	}

	tables := pipeline.Tables{Source: source}
	if err := s.readWinning(ctx, key, &tables); err != nil {
		return pipeline.Tables{}, err
	}
	if err := s.readSets(ctx, key, &tables); err != nil {
		return pipeline.Tables{}, err
	}

	s.cache.Set(key, tables)
	return tables, nil
}

func (s *Store) readWinning(ctx context.Context, key pipeline.Key, tables *pipeline.Tables) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, win_rate, pick_rate, sample_size, img FROM winning_items
		WHERE champion = ? AND mode = ? AND tier = ? AND time_window = ?
		ORDER BY row_idx
	`, key.Champion, key.Mode, key.Tier, key.Window)
	if err != nil {
		return fmt.Errorf("failed to query winning_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w build.WinningItem
		var img string
		if err := rows.Scan(&w.Name, &w.WinRate, &w.PickRate, &w.SampleSize, &img); err != nil {
			return fmt.Errorf("failed to scan winning_items: %w", err)
		}
		tables.Winning = append(tables.Winning, w)
		if img != "" {
			if tables.Icons == nil {
				tables.Icons = make(map[string]string)
			}
			tables.Icons[w.Name] = img
		}
	}
	return rows.Err()
}

func (s *Store) readSets(ctx context.Context, key pipeline.Key, tables *pipeline.Tables) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT items, set_win_rate, set_pick_rate, set_sample_size FROM built_sets
		WHERE champion = ? AND mode = ? AND tier = ? AND time_window = ?
		ORDER BY row_idx
	`, key.Champion, key.Mode, key.Tier, key.Window)
	if err != nil {
		return fmt.Errorf("failed to query built_sets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var set build.BuiltSet
		var items string
		if err := rows.Scan(&items, &set.SetWinRate, &set.SetPickRate, &set.SetSampleSize); err != nil {
			return fmt.Errorf("failed to scan built_sets: %w", err)
		}
		set.Items = strings.Split(items, itemSep)
		tables.Sets = append(tables.Sets, set)
	}
	return rows.Err()
}

// ListSnapshots returns every stored key with its row counts
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.champion, s.mode, s.tier, s.time_window, s.source, s.imported_at,
			(SELECT COUNT(*) FROM winning_items w
				WHERE w.champion = s.champion AND w.mode = s.mode AND w.tier = s.tier AND w.time_window = s.time_window),
			(SELECT COUNT(*) FROM built_sets b
				WHERE b.champion = s.champion AND b.mode = s.mode AND b.tier = s.tier AND b.time_window = s.time_window)
		FROM snapshots s
		ORDER BY s.champion, s.mode, s.tier, s.time_window
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Key.Champion, &info.Key.Mode, &info.Key.Tier, &info.Key.Window,
			&info.Source, &info.ImportedAt, &info.Winning, &info.Sets); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// HasData reports whether any snapshot is stored
func (s *Store) HasData(ctx context.Context) bool {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&count)
	return err == nil && count > 0
}
