package repo

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS aggregation_runs (
    id            uuid PRIMARY KEY,
    project       text NOT NULL,
    trigger       text NOT NULL,
    issues        int NOT NULL DEFAULT 0,
    failed_issues int NOT NULL DEFAULT 0,
    rows          int NOT NULL DEFAULT 0,
    started_at    timestamptz NOT NULL,
    finished_at   timestamptz,
    success       boolean NOT NULL DEFAULT false,
    error         text
);
CREATE INDEX IF NOT EXISTS aggregation_runs_started_idx ON aggregation_runs (started_at DESC);
CREATE TABLE IF NOT EXISTS access_audit (
    id           bigserial PRIMARY KEY,
    account_id   text NOT NULL,
    display_name text NOT NULL DEFAULT '',
    project      text NOT NULL,
    allowed      boolean NOT NULL,
    reason       text NOT NULL DEFAULT '',
    at           timestamptz NOT NULL
);`

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) EnsureSchema(ctx context.Context) error {
    _, err := r.db.Pool.Exec(ctx, schema)
    return err
}

// TryAdvisoryLock takes a session lock on a connection held out of the pool
// until the returned unlock runs; pg_advisory_unlock only works on the
// session that locked.
func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (func(context.Context) error, bool, error) {
    conn, err := r.db.Pool.Acquire(ctx)
    if err != nil { return nil, false, err }
    var ok bool
    if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil { conn.Release(); return nil, false, err }
    if !ok { conn.Release(); return nil, false, nil }
    unlock := func(ctx context.Context) error {
        defer conn.Release()
        var released bool
        if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&released); err != nil {
            // a session that may still hold the lock must not go back to the pool
            conn.Conn().Close(context.Background())
            return err
        }
        if !released { return fmt.Errorf("advisory unlock %d returned false", key) }
        return nil
    }
    return unlock, true, nil
}

func (r *Repository) StartRun(ctx context.Context, run domain.AggregationRun) error {
    const q = `INSERT INTO aggregation_runs(id, project, trigger, started_at, success) VALUES($1,$2,$3,$4,false)`
    _, err := r.db.Pool.Exec(ctx, q, run.ID, run.Project, run.Trigger, run.StartedAt)
    return err
}

func (r *Repository) FinishRun(ctx context.Context, run domain.AggregationRun) error {
    const q = `UPDATE aggregation_runs SET finished_at=$2, issues=$3, failed_issues=$4, rows=$5, success=$6, error=$7 WHERE id=$1`
    _, err := r.db.Pool.Exec(ctx, q, run.ID, run.FinishedAt, run.Issues, run.FailedIssues, run.Rows, run.Success, run.Error)
    return err
}

// LastRun returns the most recent run, or nil when none was recorded.
func (r *Repository) LastRun(ctx context.Context) (*domain.AggregationRun, error) {
    const q = `SELECT id::text, project, trigger, issues, failed_issues, rows, started_at, finished_at, success, coalesce(error,'')
        FROM aggregation_runs ORDER BY started_at DESC LIMIT 1`
    var lr domain.AggregationRun
    err := r.db.Pool.QueryRow(ctx, q).Scan(&lr.ID, &lr.Project, &lr.Trigger, &lr.Issues, &lr.FailedIssues, &lr.Rows,
        &lr.StartedAt, &lr.FinishedAt, &lr.Success, &lr.Error)
    if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    return &lr, nil
}

func (r *Repository) RecordAccess(ctx context.Context, ev domain.AccessEvent) error {
    const q = `INSERT INTO access_audit(account_id, display_name, project, allowed, reason, at) VALUES($1,$2,$3,$4,$5,$6)`
    _, err := r.db.Pool.Exec(ctx, q, ev.AccountID, ev.DisplayName, ev.Project, ev.Allowed, ev.Reason, ev.At)
    return err
}
