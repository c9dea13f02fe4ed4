package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrEmptyEntry = errors.New("history entry has no query text")

// SQLiteHistory persists saved queries across sessions.
type SQLiteHistory struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteHistory, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteHistory{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS queries (
    id TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteHistory) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteHistory) Save(ctx context.Context, query, kind string) (Entry, error) {
	e := newEntry(query, kind)
	if e.Query == "" {
		return Entry{}, ErrEmptyEntry
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO queries (id, query, kind, created_at)
VALUES (?, ?, ?, ?)
`, e.ID, e.Query, e.Kind, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Entry{}, fmt.Errorf("insert query: %w", err)
	}
	return e, nil
}

// Recent lists saved queries by rowid, newest first.
func (s *SQLiteHistory) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = SessionLimit
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, query, kind, created_at
FROM queries
ORDER BY rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Query, &e.Kind, &created); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queries rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteHistory) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queries`); err != nil {
		return fmt.Errorf("clear queries: %w", err)
	}
	return nil
}
