// Package db reads aggregated item and loadout statistics from PostgreSQL.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ghostbuild/internal/build"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
)

// ErrNoStats means no statistics exist for a key
var ErrNoStats = errors.New("no stats for key")

// DB wraps a pgx connection pool
type DB struct {
	pool   *pgxpool.Pool
	loader *loader.Loader

	// Recorder, when set, receives the row reports of every read and save
	Recorder loader.ReportRecorder
}

// New creates a connection pool for url, falling back to DATABASE_URL
func New(ctx context.Context, url string) (*DB, error) {
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("database URL not configured (set storage.postgres_url or DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{pool: pool, loader: loader.New()}, nil
}

// Close closes the pool
func (db *DB) Close() {
	db.pool.Close()
}

// Pool returns the underlying pool for custom queries
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// CreateTables creates the statistics tables if missing
func (db *DB) CreateTables(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS item_stats (
			id BIGSERIAL PRIMARY KEY,
			champion TEXT NOT NULL,
			mode TEXT NOT NULL,
			tier TEXT NOT NULL,
			time_window TEXT NOT NULL,
			name TEXT NOT NULL,
			win_rate DOUBLE PRECISION NOT NULL,
			pick_rate DOUBLE PRECISION NOT NULL,
			sample_size INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_item_stats_key ON item_stats (champion, mode, tier, time_window);

		CREATE TABLE IF NOT EXISTS set_stats (
			id BIGSERIAL PRIMARY KEY,
			champion TEXT NOT NULL,
			mode TEXT NOT NULL,
			tier TEXT NOT NULL,
			time_window TEXT NOT NULL,
			items TEXT[] NOT NULL,
			set_win_rate DOUBLE PRECISION NOT NULL,
			set_pick_rate DOUBLE PRECISION NOT NULL,
			set_sample_size INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_set_stats_key ON set_stats (champion, mode, tier, time_window);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// clean applies the loader row rules. Rows written by other tools are not
// trusted any more than CSV input.
func (db *DB) clean(tables pipeline.Tables) pipeline.Tables {
	cleaned, reps := db.loader.CleanTables(tables)
	if db.Recorder != nil {
		db.Recorder.RecordReports(reps)
	}
	return cleaned
}

// SaveTables replaces the statistics stored for key. Rows the loader rules
// reject are not written.
func (db *DB) SaveTables(ctx context.Context, key pipeline.Key, tables pipeline.Tables) error {
	tables = db.clean(tables)
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		args := []any{key.Champion, key.Mode, key.Tier, key.Window}
		for _, table := range []string{"item_stats", "set_stats"} {
			q := fmt.Sprintf(`DELETE FROM %s WHERE champion = $1 AND mode = $2 AND tier = $3 AND time_window = $4`, table)
			if _, err := tx.Exec(ctx, q, args...); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		batch := &pgx.Batch{}
		for _, w := range tables.Winning {
			batch.Queue(`
				INSERT INTO item_stats (champion, mode, tier, time_window, name, win_rate, pick_rate, sample_size)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, key.Champion, key.Mode, key.Tier, key.Window, w.Name, w.WinRate, w.PickRate, w.SampleSize)
		}
		for _, s := range tables.Sets {
			batch.Queue(`
				INSERT INTO set_stats (champion, mode, tier, time_window, items, set_win_rate, set_pick_rate, set_sample_size)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, key.Champion, key.Mode, key.Tier, key.Window, s.Items, s.SetWinRate, s.SetPickRate, s.SetSampleSize)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert stats: %w", err)
		}
		return nil
	})
}

// Tables implements pipeline.Source
func (db *DB) Tables(ctx context.Context, key pipeline.Key) (pipeline.Tables, error) {
	args := []any{key.Champion, key.Mode, key.Tier, key.Window}

	rows, err := db.pool.Query(ctx, `
		SELECT name, win_rate, pick_rate, sample_size FROM item_stats
		WHERE champion = $1 AND mode = $2 AND tier = $3 AND time_window = $4
		ORDER BY id
	`, args...)
	if err != nil {
		return pipeline.Tables{}, fmt.Errorf("failed to query item_stats: %w", err)
	}
	winning, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (build.WinningItem, error) {
		var w build.WinningItem
		err := row.Scan(&w.Name, &w.WinRate, &w.PickRate, &w.SampleSize)
		return w, err
	})
	if err != nil {
		return pipeline.Tables{}, fmt.Errorf("failed to scan item_stats: %w", err)
	}

	rows, err = db.pool.Query(ctx, `
		SELECT items, set_win_rate, set_pick_rate, set_sample_size FROM set_stats
		WHERE champion = $1 AND mode = $2 AND tier = $3 AND time_window = $4
		ORDER BY id
	`, args...)
	if err != nil {
		return pipeline.Tables{}, fmt.Errorf("failed to query set_stats: %w", err)
	}
	sets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (build.BuiltSet, error) {
		var s build.BuiltSet
		err := row.Scan(&s.Items, &s.SetWinRate, &s.SetPickRate, &s.SetSampleSize)
		return s, err
	})
	if err != nil {
		return pipeline.Tables{}, fmt.Errorf("failed to scan set_stats: %w", err)
	}

	if len(winning) == 0 && len(sets) == 0 {
		return pipeline.Tables{}, fmt.Errorf("%s: %w", key.Base(), ErrNoStats)
	}
	return db.clean(pipeline.Tables{Winning: winning, Sets: sets, Source: "postgres"}), nil
}

// Keys lists every key with item statistics
func (db *DB) Keys(ctx context.Context) ([]pipeline.Key, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT DISTINCT champion, mode, tier, time_window FROM item_stats
		ORDER BY champion, mode, tier, time_window
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pipeline.Key, error) {
		var k pipeline.Key
		err := row.Scan(&k.Champion, &k.Mode, &k.Tier, &k.Window)
		return k, err
	})
}
