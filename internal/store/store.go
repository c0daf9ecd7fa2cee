// Package store handles SQLite persistence of the brew journal.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/pourover/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for brew records.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS brews (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			beans_g INTEGER NOT NULL,
			water_g INTEGER NOT NULL,
			elapsed_seconds INTEGER NOT NULL,
			completed INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_brews_ended_at ON brews(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertBrew stores a finished or abandoned brew.
func (s *Store) InsertBrew(ctx context.Context, rec model.BrewRecord) (int64, error) {
	completed := 0
	if rec.Completed {
		completed = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO brews (started_at, ended_at, beans_g, water_g, elapsed_seconds, completed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		rec.BeansGrams,
		rec.WaterGrams,
		rec.ElapsedSeconds,
		completed,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListBrews returns brews ordered oldest first. When last > 0 only the most
// recent last brews are returned.
func (s *Store) ListBrews(ctx context.Context, cfg model.HistoryConfig) ([]model.BrewEntry, error) {
	query := `SELECT id, started_at, ended_at, beans_g, water_g, elapsed_seconds, completed
		FROM brews
		ORDER BY ended_at DESC, id DESC`
	args := []any{}
	if cfg.Last > 0 {
		query += ` LIMIT ?`
		args = append(args, cfg.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var brews []model.BrewEntry
	for rows.Next() {
		var entry model.BrewEntry
		var startedAt, endedAt string
		var completed int
		if err := rows.Scan(&entry.ID, &startedAt, &endedAt, &entry.BeansGrams, &entry.WaterGrams, &entry.ElapsedSeconds, &completed); err != nil {
			return nil, err
		}
		if entry.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if entry.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		entry.Completed = completed != 0
		brews = append(brews, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(brews)-1; i < j; i, j = i+1, j-1 {
		brews[i], brews[j] = brews[j], brews[i]
	}
	return brews, nil
}
