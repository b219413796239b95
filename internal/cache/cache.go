// Package cache holds the aggregated worklog rows per project for a fixed TTL.
//
// Entries are whole-project snapshots: a miss is answered by a full
// recompute that replaces the entry, never by patching it. The store is
// created once per process and shared by every request.
package cache

import (
    "context"
    "sync"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
    "golang.org/x/sync/singleflight"
)

type Entry struct {
    Key       string
    Rows      []domain.WorklogRow
    CreatedAt time.Time
}

// Loader recomputes the rows of one key after a miss.
type Loader func(ctx context.Context) ([]domain.WorklogRow, error)

type Store struct {
    mu      sync.RWMutex
    entries map[string]Entry
    ttl     time.Duration
    now     func() time.Time
    group   singleflight.Group
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(ttl time.Duration, opts ...Option) *Store {
    s := &Store{entries: make(map[string]Entry), ttl: ttl, now: time.Now}
    for _, o := range opts { o(s) }
    return s
}

// ProjectKey derives the cache key of a project report.
func ProjectKey(project string) string { return "project:" + project }

// Get returns the rows stored under key while they are younger than the TTL.
// The returned slice is shared and must not be modified.
func (s *Store) Get(key string) ([]domain.WorklogRow, bool) {
    s.mu.RLock()
    e, ok := s.entries[key]
    s.mu.RUnlock()
    if !ok || s.now().Sub(e.CreatedAt) >= s.ttl { return nil, false }
    return e.Rows, true
}

// Put replaces the entry for key.
func (s *Store) Put(key string, rows []domain.WorklogRow) {
    s.mu.Lock()
    s.entries[key] = Entry{Key: key, Rows: rows, CreatedAt: s.now()}
    s.mu.Unlock()
}

// GetOrLoad returns the cached rows for key or runs load and stores its
// result. Concurrent misses for the same key share one load. Errors are
// returned to every waiter and nothing is stored.
func (s *Store) GetOrLoad(ctx context.Context, key string, load Loader) ([]domain.WorklogRow, bool, error) {
    if rows, ok := s.Get(key); ok { return rows, true, nil }
    v, err, _ := s.group.Do(key, func() (any, error) {
        // a concurrent caller may have stored it between our Get and Do
        if rows, ok := s.Get(key); ok { return rows, nil }
        rows, err := load(ctx)
        if err != nil { return nil, err }
        s.Put(key, rows)
        return rows, nil
    })
    if err != nil { return nil, false, err }
    return v.([]domain.WorklogRow), false, nil
}
