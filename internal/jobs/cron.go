package jobs

import (
    "context"
    "fmt"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type service interface { WarmUp(ctx context.Context) error }

// Locker hands out a cluster-wide lock. unlock is non-nil only when ok is true
// and must run on the same session that took the lock.
type Locker interface {
    TryAdvisoryLock(ctx context.Context, key int64) (unlock func(context.Context) error, ok bool, err error)
}

const warmupLockKey int64 = 731105

type Cron struct {
    cfg     config.Config
    log     zerolog.Logger
    svc     service
    lock    Locker
    c       *cron.Cron
    timeout time.Duration
}

// NewCron schedules the cache warm-up on cfg.WarmupCron. An empty schedule
// yields a Cron whose Start and Stop do nothing useful.
func NewCron(cfg config.Config, log zerolog.Logger, svc service, lock Locker) (*Cron, error) {
    loc, err := time.LoadLocation(cfg.TZ)
    if err != nil { loc = time.UTC }
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)))
    timeout := cfg.CacheTTL
    if timeout <= 0 { timeout = 5 * time.Minute }
    cr := &Cron{cfg: cfg, log: log, svc: svc, lock: lock, c: c, timeout: timeout}
    if cfg.WarmupCron != "" {
        if _, err := c.AddFunc(cfg.WarmupCron, cr.warm); err != nil { return nil, fmt.Errorf("warmup cron %q: %w", cfg.WarmupCron, err) }
    }
    return cr, nil
}

func (cr *Cron) Start(){ cr.c.Start() }

// Stop waits for a running warm-up to return.
func (cr *Cron) Stop(){ <-cr.c.Stop().Done() }

func (cr *Cron) warm(){
    ctx, cancel := context.WithTimeout(context.Background(), cr.timeout); defer cancel()
    cr.RunOnce(ctx)
}

// RunOnce warms every configured project unless another instance holds the lock.
func (cr *Cron) RunOnce(ctx context.Context) bool {
    unlock, ok, err := cr.lock.TryAdvisoryLock(ctx, warmupLockKey)
    if err != nil { cr.log.Error().Err(err).Msg("cron: lock error"); return false }
    if !ok { cr.log.Info().Msg("cron: warmup already running elsewhere"); return false }
    defer func(){
        uctx, cancel := context.WithTimeout(context.Background(), 10*time.Second); defer cancel()
        if err := unlock(uctx); err != nil { cr.log.Error().Err(err).Msg("cron: unlock failed") }
    }()
    cr.log.Info().Strs("projects", cr.cfg.JiraProjects).Msg("cron: cache warmup")
    if err := cr.svc.WarmUp(ctx); err != nil { cr.log.Error().Err(err).Msg("cron: warmup failed") }
    return true
}
