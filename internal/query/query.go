// Package query filters and pages an aggregated worklog row set.
package query

import (
    "math"
    "strings"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
)

const (
    DefaultPageSize = 20
    MaxPageSize     = 1000
)

type Result struct {
    Rows       []domain.WorklogRow `json:"rows"`
    Pagination domain.Pagination   `json:"pagination"`
}

// Run filters rows by the criteria and returns the requested page. rows is
// not modified. total counts the filtered rows, not the input.
func Run(rows []domain.WorklogRow, c domain.FilterCriteria) Result {
    c = Normalize(c)
    filtered := Filter(rows, c)
    total := len(filtered)

    start := c.StartAt
    if start > total { start = total }
    end := start + c.PageSize
    if end > total { end = total }

    page := make([]domain.WorklogRow, end-start)
    copy(page, filtered[start:end])
    return Result{
        Rows: page,
        Pagination: domain.Pagination{
            StartAt:    c.StartAt,
            MaxResults: c.PageSize,
            Total:      total,
            IsLast:     c.StartAt+c.PageSize >= total,
        },
    }
}

// maxStartAt keeps StartAt+PageSize from overflowing.
const maxStartAt = math.MaxInt - MaxPageSize

// Normalize applies the paging defaults. The search term is kept verbatim:
// surrounding spaces are part of the literal.
func Normalize(c domain.FilterCriteria) domain.FilterCriteria {
    if c.StartAt < 0 { c.StartAt = 0 }
    if c.StartAt > maxStartAt { c.StartAt = maxStartAt }
    if c.PageSize <= 0 { c.PageSize = DefaultPageSize }
    if c.PageSize > MaxPageSize { c.PageSize = MaxPageSize }
    c.Assignee = strings.TrimSpace(c.Assignee)
    return c
}

// Filter returns the rows matching every set criterion, in input order.
func Filter(rows []domain.WorklogRow, c domain.FilterCriteria) []domain.WorklogRow {
    term := strings.ToLower(c.SearchTerm)
    assignee := strings.TrimSpace(c.Assignee)
    if term == "" && assignee == "" && c.From == nil && c.To == nil { return rows }

    out := make([]domain.WorklogRow, 0, len(rows))
    for _, r := range rows {
        if term != "" && !Matches(r, term) { continue }
        if assignee != "" && !strings.EqualFold(r.Assignee, assignee) { continue }
        if (c.From != nil || c.To != nil) && !inRange(r.Date, c.From, c.To) { continue }
        out = append(out, r)
    }
    return out
}

// Matches reports whether the lower-cased term occurs in the assignee,
// work item or comment of r. The term is one literal, never tokenized.
func Matches(r domain.WorklogRow, term string) bool {
    return strings.Contains(strings.ToLower(r.Assignee), term) ||
        strings.Contains(strings.ToLower(r.WorkItem), term) ||
        strings.Contains(strings.ToLower(r.Comment), term)
}

// inRange keeps rows whose start time is in [from, to]. Rows with an
// unparseable date never match a date filter.
func inRange(date string, from, to *time.Time) bool {
    t, ok := ParseDate(date)
    if !ok { return false }
    if from != nil && t.Before(*from) { return false }
    if to != nil && t.After(*to) { return false }
    return true
}

// ParseDate reads a Jira worklog "started" timestamp.
func ParseDate(s string) (time.Time, bool) {
    if s == "" { return time.Time{}, false }
    layouts := []string{"2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700", time.RFC3339Nano, time.RFC3339, "2006-01-02"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil { return t, true }
    }
    return time.Time{}, false
}
