package jobs

import (
    "bytes"
    "context"
    "errors"
    "testing"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/emmanyouwell/jira-global-summary-app/internal/repo"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

type countingService struct {
    calls int
    err   error
}

func (s *countingService) WarmUp(ctx context.Context) error { s.calls++; return s.err }

func TestRunOnce_HoldsLock(t *testing.T) {
    lock := repo.NewMemoryStore(0)
    svc := &countingService{}
    cr, err := NewCron(config.Config{TZ: "UTC"}, zerolog.Nop(), svc, lock)
    require.NoError(t, err)

    assert.True(t, cr.RunOnce(context.Background()))
    assert.Equal(t, 1, svc.calls)

    unlock, held, _ := lock.TryAdvisoryLock(context.Background(), warmupLockKey)
    require.True(t, held, "lock must be released after a run")
    assert.False(t, cr.RunOnce(context.Background()))
    assert.Equal(t, 1, svc.calls)
    require.NoError(t, unlock(context.Background()))

    svc.err = errors.New("jira down")
    assert.True(t, cr.RunOnce(context.Background()))
    assert.Equal(t, 2, svc.calls)
}

type failingUnlock struct{ unlocks int }

func (f *failingUnlock) TryAdvisoryLock(context.Context, int64) (func(context.Context) error, bool, error) {
    return func(context.Context) error { f.unlocks++; return errors.New("conn closed") }, true, nil
}

func TestRunOnce_LogsUnlockError(t *testing.T) {
    var buf bytes.Buffer
    lock := &failingUnlock{}
    svc := &countingService{}
    cr, err := NewCron(config.Config{TZ: "UTC"}, zerolog.New(&buf), svc, lock)
    require.NoError(t, err)

    assert.True(t, cr.RunOnce(context.Background()))
    assert.Equal(t, 1, svc.calls)
    assert.Equal(t, 1, lock.unlocks)
    assert.Contains(t, buf.String(), "cron: unlock failed")
    assert.Contains(t, buf.String(), "conn closed")
}

func TestNewCron_RejectsBadSchedule(t *testing.T) {
    _, err := NewCron(config.Config{WarmupCron: "every tuesday"}, zerolog.Nop(), &countingService{}, repo.NewMemoryStore(0))
    assert.Error(t, err)

    cr, err := NewCron(config.Config{WarmupCron: "*/5 * * * *", TZ: "Europe/Berlin"}, zerolog.Nop(), &countingService{}, repo.NewMemoryStore(0))
    require.NoError(t, err)
    cr.Start()
    cr.Stop()
}
