package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/medscope/litsearch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS resolutions (
	id             TEXT PRIMARY KEY,
	input          TEXT NOT NULL,
	criteria       TEXT NOT NULL,
	compiled_query TEXT NOT NULL,
	source         TEXT NOT NULL,
	latency_ms     INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_resolutions_created_at ON resolutions(created_at);
CREATE INDEX IF NOT EXISTS idx_resolutions_source ON resolutions(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record inserts one resolution. A missing ID or timestamp is filled in.
func (s *SQLiteStore) Record(ctx context.Context, res model.Resolution) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}

	criteriaJSON, err := json.Marshal(res.Criteria)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal criteria")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO resolutions (id, input, criteria, compiled_query, source, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Input, string(criteriaJSON), res.CompiledQuery, res.Source, res.LatencyMS, res.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert resolution")
}

// List returns the most recent resolutions, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]model.Resolution, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, criteria, compiled_query, source, latency_ms, created_at
		 FROM resolutions ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list resolutions")
	}
	defer rows.Close()

	var out []model.Resolution
	for rows.Next() {
		var r model.Resolution
		var criteriaJSON string
		if err := rows.Scan(&r.ID, &r.Input, &criteriaJSON, &r.CompiledQuery, &r.Source, &r.LatencyMS, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan resolution")
		}
		if err := json.Unmarshal([]byte(criteriaJSON), &r.Criteria); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal criteria")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list resolutions iterate")
}

// Summarize aggregates counts and average latency across all resolutions.
func (s *SQLiteStore) Summarize(ctx context.Context) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN source = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source = ? THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM resolutions`,
		model.SourceCache, model.SourceBackend, model.SourceFallback,
	)

	var sum Summary
	if err := row.Scan(&sum.Total, &sum.FromCache, &sum.FromBackend, &sum.FromFallback, &sum.AvgLatencyMS); err != nil {
		return nil, eris.Wrap(err, "sqlite: summarize resolutions")
	}
	return &sum, nil
}
