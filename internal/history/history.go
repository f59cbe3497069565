// Package history persists analysis runs in a local SQLite database so
// past sessions can be listed and aggregated.
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/ai-mindset/ner-playground/internal/entity"
)

// Run is one recorded analysis.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Model     string    `json:"model"`
	Source    string    `json:"source"`
	TextBytes int       `json:"text_bytes"`
	Entities  int       `json:"entities"`
}

// Store persists runs. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// Open opens (and if needed creates) the database at path with WAL
// mode enabled.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	model TEXT NOT NULL,
	source TEXT NOT NULL,
	text_bytes INTEGER NOT NULL,
	entities INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_labels (
	run_id TEXT NOT NULL,
	label TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, label),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// RecordRun stores one analysis with its per-label counts and returns
// the run id. Run ids are ULIDs, so lexical order is creation order.
func (s *Store) RecordRun(ctx context.Context, model, source string, textBytes int, summary entity.Summary) (string, error) {
	id := ulid.MustNew(ulid.Now(), s.entropy).String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, model, source, text_bytes, entities) VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), model, source, textBytes, summary.Total())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	for _, lc := range summary {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_labels (run_id, label, count) VALUES (?, ?, ?)`,
			id, lc.Label, lc.Count)
		if err != nil {
			return "", fmt.Errorf("insert run label: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Stats aggregates everything the store has recorded.
type Stats struct {
	Runs      int          `json:"runs"`
	Entities  int          `json:"entities"`
	TopLabels []LabelTotal `json:"top_labels"`
	Recent    []Run        `json:"recent,omitempty"`
}

type LabelTotal struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats returns totals, the topN most frequent labels across all runs,
// and the recentN newest runs.
func (s *Store) Stats(ctx context.Context, topN, recentN int) (Stats, error) {
	if topN <= 0 {
		topN = 5
	}
	if recentN <= 0 {
		recentN = 10
	}

	var out Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(entities), 0) FROM runs`).Scan(&out.Runs, &out.Entities)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT label, SUM(count) AS total FROM run_labels GROUP BY label ORDER BY total DESC, label ASC LIMIT ?`, topN)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate labels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lt LabelTotal
		if err := rows.Scan(&lt.Label, &lt.Count); err != nil {
			return Stats{}, err
		}
		out.TopLabels = append(out.TopLabels, lt)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	recent, err := s.recentRuns(ctx, recentN)
	if err != nil {
		return Stats{}, err
	}
	out.Recent = recent
	return out, nil
}

func (s *Store) recentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, model, source, text_bytes, entities FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &created, &r.Model, &r.Source, &r.TextBytes, &r.Entities); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
