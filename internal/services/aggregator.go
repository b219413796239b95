package services

import (
    "context"

    "github.com/emmanyouwell/jira-global-summary-app/internal/adapters/jira"
    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
    "github.com/emmanyouwell/jira-global-summary-app/internal/pool"
    "github.com/rs/zerolog"
)

// AggregateResult is the merged outcome of one batch. Failed lists the keys
// that contributed no rows because their collection errored.
type AggregateResult struct {
    Rows   []domain.WorklogRow
    Issues int
    Failed []string
}

// Aggregator runs a Collector over many issues with at most limit in flight
// and waits for all of them. A failing issue is logged and skipped.
type Aggregator struct {
    limit int
    log   zerolog.Logger
}

func NewAggregator(limit int, log zerolog.Logger) *Aggregator {
    if limit <= 0 { limit = 5 }
    return &Aggregator{limit: limit, log: log}
}

// Aggregate returns the rows grouped by issue in the order of refs.
func (a *Aggregator) Aggregate(ctx context.Context, col *Collector, refs []domain.IssueRef) AggregateResult {
    results := pool.SettleAll(ctx, a.limit, refs, col.Collect)
    out := AggregateResult{Issues: len(refs)}
    n := 0
    for _, r := range results { n += len(r.Value) }
    out.Rows = make([]domain.WorklogRow, 0, n)
    for i, r := range results {
        if !r.OK() {
            if jira.IsNotFound(r.Err) {
                // deleted or moved between the search and the worklog fetch
                a.log.Info().Err(r.Err).Str("issue", refs[i].Key).Msg("aggregate: issue gone")
            } else {
                a.log.Warn().Err(r.Err).Str("issue", refs[i].Key).Msg("aggregate: issue skipped")
            }
            out.Failed = append(out.Failed, refs[i].Key)
            continue
        }
        out.Rows = append(out.Rows, r.Value...)
    }
    return out
}
