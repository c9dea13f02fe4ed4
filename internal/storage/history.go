// Package storage keeps the query history. Only the query text, its routing
// kind and the time are stored; snapshots and answers never are.
package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dyike/StockAgent/config"
	"github.com/google/uuid"
)

// SessionLimit is how many saved queries a session shows.
const SessionLimit = 10

type Entry struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// History stores saved queries. Recent returns the newest first.
type History interface {
	Save(ctx context.Context, query, kind string) (Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Clear(ctx context.Context) error
	Close() error
}

// Open returns the SQLite history when cfg names a database, otherwise an
// in-memory one that lives as long as the process.
func Open(cfg *config.Config) (History, error) {
	if path := strings.TrimSpace(cfg.HistoryDBPath); path != "" {
		return OpenSQLite(path)
	}
	return NewMemoryHistory(SessionLimit), nil
}

func newEntry(query, kind string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Query:     strings.TrimSpace(query),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// MemoryHistory keeps the last capacity entries.
type MemoryHistory struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = SessionLimit
	}
	return &MemoryHistory{capacity: capacity}
}

func (m *MemoryHistory) Save(_ context.Context, query, kind string) (Entry, error) {
	e := newEntry(query, kind)
	if e.Query == "" {
		return Entry{}, ErrEmptyEntry
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = append([]Entry(nil), m.entries[over:]...)
	}
	return e, nil
}

func (m *MemoryHistory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *MemoryHistory) Clear(context.Context) error {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryHistory) Close() error { return nil }
