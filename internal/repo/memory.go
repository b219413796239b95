package repo

import (
    "context"
    "fmt"
    "sync"

    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
)

// MemoryStore keeps run history and audit events in process. It is used when
// no DB_DSN is configured; locks are process-local.
type MemoryStore struct {
    mu     sync.Mutex
    runs   []domain.AggregationRun
    events []domain.AccessEvent
    locks  map[int64]bool
    limit  int
}

func NewMemoryStore(limit int) *MemoryStore {
    if limit <= 0 { limit = 500 }
    return &MemoryStore{locks: map[int64]bool{}, limit: limit}
}

// TryAdvisoryLock mirrors the Postgres lock: the returned unlock releases the
// key once and reports an error when called again.
func (m *MemoryStore) TryAdvisoryLock(_ context.Context, key int64) (func(context.Context) error, bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if m.locks[key] { return nil, false, nil }
    m.locks[key] = true
    released := false
    unlock := func(context.Context) error {
        m.mu.Lock(); defer m.mu.Unlock()
        if released { return fmt.Errorf("advisory unlock %d returned false", key) }
        released = true
        delete(m.locks, key)
        return nil
    }
    return unlock, true, nil
}

func (m *MemoryStore) StartRun(_ context.Context, run domain.AggregationRun) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.runs = append(m.runs, run)
    if len(m.runs) > m.limit { m.runs = m.runs[len(m.runs)-m.limit:] }
    return nil
}

func (m *MemoryStore) FinishRun(_ context.Context, run domain.AggregationRun) error {
    m.mu.Lock(); defer m.mu.Unlock()
    for i := range m.runs {
        if m.runs[i].ID == run.ID { m.runs[i] = run; return nil }
    }
    m.runs = append(m.runs, run)
    return nil
}

func (m *MemoryStore) LastRun(_ context.Context) (*domain.AggregationRun, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if len(m.runs) == 0 { return nil, nil }
    last := m.runs[0]
    for _, r := range m.runs[1:] {
        if !r.StartedAt.Before(last.StartedAt) { last = r }
    }
    return &last, nil
}

func (m *MemoryStore) RecordAccess(_ context.Context, ev domain.AccessEvent) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.events = append(m.events, ev)
    if len(m.events) > m.limit { m.events = m.events[len(m.events)-m.limit:] }
    return nil
}

// AccessEvents returns a copy of the buffered audit trail, oldest first.
func (m *MemoryStore) AccessEvents() []domain.AccessEvent {
    m.mu.Lock(); defer m.mu.Unlock()
    return append([]domain.AccessEvent(nil), m.events...)
}
