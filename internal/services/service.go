/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "errors"
    "fmt"
    "regexp"
    "strings"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/access"
    "github.com/emmanyouwell/jira-global-summary-app/internal/adapters/jira"
    "github.com/emmanyouwell/jira-global-summary-app/internal/cache"
    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
    "github.com/emmanyouwell/jira-global-summary-app/internal/pager"
    "github.com/emmanyouwell/jira-global-summary-app/internal/query"
    "github.com/google/uuid"
    "github.com/rs/zerolog"
)

var (
    // ErrAccessDenied means the caller was identified but the policy refused them.
    ErrAccessDenied = errors.New("access denied")
    ErrInvalidProject = errors.New("invalid project key")
)

var projectKeyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Store persists run history and the access audit trail.
type Store interface {
    StartRun(ctx context.Context, run domain.AggregationRun) error
    FinishRun(ctx context.Context, run domain.AggregationRun) error
    LastRun(ctx context.Context) (*domain.AggregationRun, error)
    RecordAccess(ctx context.Context, ev domain.AccessEvent) error
}

type Service struct {
    cfg   config.Config
    log   zerolog.Logger
    store Store
    jira  *jira.Client
    gate  *access.Gate
    cache *cache.Store
    agg   *Aggregator
    now   func() time.Time
}

func New(cfg config.Config, log zerolog.Logger, store Store, jc *jira.Client, gate *access.Gate, c *cache.Store) *Service {
    return &Service{
        cfg: cfg, log: log, store: store, jira: jc, gate: gate, cache: c,
        agg: NewAggregator(cfg.MaxConcurrency, log),
        now: time.Now,
    }
}

// Worklogs answers one report request. authorization is the caller's
// Authorization header and is forwarded to Jira unchanged. The gate runs
// before anything else; on a cache miss the project is aggregated once and
// shared with every concurrent request for it.
func (s *Service) Worklogs(ctx context.Context, authorization, projectKey string, crit domain.FilterCriteria) (query.Result, error) {
    if !projectKeyRe.MatchString(projectKey) { return query.Result{}, fmt.Errorf("%w: %q", ErrInvalidProject, projectKey) }
    caller := s.jira.AsUser(authorization)

    d, _, err := s.CheckAccess(ctx, caller, projectKey)
    if err != nil { return query.Result{}, err }
    if !d.Allowed { return query.Result{}, ErrAccessDenied }

    rows, hit, err := s.cache.GetOrLoad(ctx, cache.ProjectKey(projectKey), func(ctx context.Context) ([]domain.WorklogRow, error) {
        ctx, cancel := s.loadContext(ctx)
        defer cancel()
        rows, _, err := s.aggregate(ctx, caller, projectKey, "request")
        return rows, err
    })
    if err != nil { return query.Result{}, err }
    res := query.Run(rows, crit)
    s.log.Debug().Str("project", projectKey).Bool("cache_hit", hit).Int("rows", len(rows)).Int("total", res.Pagination.Total).Msg("worklogs served")
    return res, nil
}

// CheckAccess runs the gate for caller and records the decision.
func (s *Service) CheckAccess(ctx context.Context, caller access.Directory, projectKey string) (domain.AccessDecision, domain.Identity, error) {
    d, id, err := s.gate.Check(ctx, caller, s.jira.AsApp(), projectKey)
    if err != nil {
        if jira.IsUnauthorized(err) {
            s.log.Warn().Err(err).Str("project", projectKey).Msg("access check: credentials rejected")
        } else {
            s.log.Error().Err(err).Str("project", projectKey).Msg("access check failed")
        }
        return d, id, fmt.Errorf("access check: %w", err)
    }
    ev := domain.AccessEvent{AccountID: id.AccountID, DisplayName: id.DisplayName, Project: projectKey, Allowed: d.Allowed, Reason: d.Reason, At: s.now().UTC()}
    if err := s.store.RecordAccess(ctx, ev); err != nil {
        s.log.Warn().Err(err).Str("account", id.AccountID).Msg("access audit write failed")
    }
    return d, id, nil
}

// CheckAccessAs is CheckAccess for a raw Authorization header value.
func (s *Service) CheckAccessAs(ctx context.Context, authorization, projectKey string) (domain.AccessDecision, domain.Identity, error) {
    return s.CheckAccess(ctx, s.jira.AsUser(authorization), projectKey)
}

// Refresh recomputes a project with the app identity and replaces its
// cache entry regardless of age.
func (s *Service) Refresh(ctx context.Context, projectKey, trigger string) (domain.AggregationRun, error) {
    if !projectKeyRe.MatchString(projectKey) { return domain.AggregationRun{}, fmt.Errorf("%w: %q", ErrInvalidProject, projectKey) }
    rows, run, err := s.aggregate(ctx, s.jira.AsApp(), projectKey, trigger)
    if err != nil { return run, err }
    s.cache.Put(cache.ProjectKey(projectKey), rows)
    return run, nil
}

// WarmUp refreshes every configured project. Failures are logged and joined.
func (s *Service) WarmUp(ctx context.Context) error {
    var errs []error
    for _, p := range s.cfg.JiraProjects {
        if ctx.Err() != nil { errs = append(errs, ctx.Err()); break }
        run, err := s.Refresh(ctx, p, "cron")
        if err != nil {
            s.log.Error().Err(err).Str("project", p).Msg("warmup failed")
            errs = append(errs, fmt.Errorf("%s: %w", p, err))
            continue
        }
        s.log.Info().Str("project", p).Int("rows", run.Rows).Int("failed_issues", run.FailedIssues).Msg("warmup done")
    }
    return errors.Join(errs...)
}

// Report serves the command line: app identity, no gate, same cache.
func (s *Service) Report(ctx context.Context, projectKey string, crit domain.FilterCriteria) (query.Result, error) {
    if !projectKeyRe.MatchString(projectKey) { return query.Result{}, fmt.Errorf("%w: %q", ErrInvalidProject, projectKey) }
    app := s.jira.AsApp()
    rows, _, err := s.cache.GetOrLoad(ctx, cache.ProjectKey(projectKey), func(ctx context.Context) ([]domain.WorklogRow, error) {
        ctx, cancel := s.loadContext(ctx)
        defer cancel()
        rows, _, err := s.aggregate(ctx, app, projectKey, "cli")
        return rows, err
    })
    if err != nil { return query.Result{}, err }
    return query.Run(rows, crit), nil
}

func (s *Service) LastRun(ctx context.Context) (*domain.AggregationRun, error) { return s.store.LastRun(ctx) }

// loadContext detaches a shared load from the request that happened to
// start it, bounded by AggregateTimeout when set.
func (s *Service) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
    ctx = context.WithoutCancel(ctx)
    if s.cfg.AggregateTimeout > 0 { return context.WithTimeout(ctx, s.cfg.AggregateTimeout) }
    return context.WithCancel(ctx)
}

// aggregate enumerates the project's issues and collects all their
// worklogs. Enumeration errors fail the run; per-issue errors do not.
func (s *Service) aggregate(ctx context.Context, client *jira.Client, projectKey, trigger string) ([]domain.WorklogRow, domain.AggregationRun, error) {
    run := domain.AggregationRun{ID: uuid.NewString(), Project: projectKey, Trigger: trigger, StartedAt: s.now().UTC()}
    if err := s.store.StartRun(ctx, run); err != nil { s.log.Warn().Err(err).Str("run", run.ID).Msg("run start write failed") }
    log := s.log.With().Str("run", run.ID).Str("project", projectKey).Str("trigger", trigger).Logger()

    jql := fmt.Sprintf(s.cfg.JiraIssueJQL, quoteJQL(projectKey))
    issues, err := pager.FetchAll(ctx, s.cfg.JiraSearchPageSize, func(ctx context.Context, startAt, max int) (pager.Page[jira.Issue], error) {
        res, err := client.SearchIssues(ctx, jql, startAt, max)
        if err != nil { return pager.Page[jira.Issue]{}, err }
        return res.Page(), nil
    })
    if err != nil {
        err = fmt.Errorf("enumerate issues of %s: %w", projectKey, err)
        s.finish(ctx, &run, err)
        log.Error().Err(err).Msg("aggregate failed")
        return nil, run, err
    }

    refs := make([]domain.IssueRef, 0, len(issues))
    for _, is := range issues { refs = append(refs, domain.IssueRef{Key: is.Key, Summary: is.Fields.Summary}) }
    res := s.agg.Aggregate(ctx, NewCollector(client, s.cfg.JiraWorklogPageSize), refs)

    run.Issues, run.FailedIssues, run.Rows = res.Issues, len(res.Failed), len(res.Rows)
    s.finish(ctx, &run, nil)
    log.Info().Int("issues", run.Issues).Int("failed_issues", run.FailedIssues).Int("rows", run.Rows).
        Dur("took", run.FinishedAt.Sub(run.StartedAt)).Msg("aggregate done")
    return res.Rows, run, nil
}

func (s *Service) finish(ctx context.Context, run *domain.AggregationRun, err error) {
    fin := s.now().UTC()
    run.FinishedAt = &fin
    run.Success = err == nil
    if err != nil { run.Error = err.Error() }
    if werr := s.store.FinishRun(context.WithoutCancel(ctx), *run); werr != nil {
        s.log.Warn().Err(werr).Str("run", run.ID).Msg("run finish write failed")
    }
}

func quoteJQL(s string) string {
    return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
