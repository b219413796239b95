// Package wire assembles the service graph shared by the API server and the CLI.
package wire

import (
    "context"
    "fmt"

    "github.com/emmanyouwell/jira-global-summary-app/internal/access"
    "github.com/emmanyouwell/jira-global-summary-app/internal/adapters/jira"
    "github.com/emmanyouwell/jira-global-summary-app/internal/cache"
    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/emmanyouwell/jira-global-summary-app/internal/jobs"
    "github.com/emmanyouwell/jira-global-summary-app/internal/repo"
    "github.com/emmanyouwell/jira-global-summary-app/internal/services"
    "github.com/rs/zerolog"
)

// Store is what the service and the warm-up job need from persistence.
type Store interface {
    services.Store
    jobs.Locker
}

type App struct {
    Service *services.Service
    Store   Store
    close   func()
}

func (a *App) Close() { if a.close != nil { a.close() } }

// Build connects to Postgres when DB_DSN is set and falls back to an
// in-memory store otherwise.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
    if err := cfg.Validate(); err != nil { return nil, err }
    policy, err := access.NewPolicy(cfg.AccessMode, cfg.AccessGroups, cfg.AccessForbiddenRoles)
    if err != nil { return nil, err }

    a := &App{}
    if cfg.DBDSN != "" {
        db := repo.MustOpen(ctx, cfg, log)
        r := repo.NewRepository(db, log)
        if err := r.EnsureSchema(ctx); err != nil { db.Close(); return nil, fmt.Errorf("ensure schema: %w", err) }
        a.Store, a.close = r, db.Close
    } else {
        log.Warn().Msg("DB_DSN not set; run history and access audit kept in memory")
        a.Store = repo.NewMemoryStore(0)
    }

    jc := jira.NewClient(cfg, log)
    gate := access.NewGate(policy, log)
    a.Service = services.New(cfg, log, a.Store, jc, gate, cache.New(cfg.CacheTTL))
    return a, nil
}
