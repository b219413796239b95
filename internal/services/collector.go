package services

import (
    "context"
    "encoding/json"
    "fmt"

    "github.com/emmanyouwell/jira-global-summary-app/internal/adapters/jira"
    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
    "github.com/emmanyouwell/jira-global-summary-app/internal/pager"
)

// WorklogSource is the part of the Jira client a Collector reads from.
type WorklogSource interface {
    IssueSummary(ctx context.Context, key string) (string, error)
    Worklogs(ctx context.Context, key string, startAt, max int) (jira.WorklogResult, error)
}

// Collector turns the worklogs of one issue into report rows.
type Collector struct {
    src      WorklogSource
    pageSize int
}

func NewCollector(src WorklogSource, pageSize int) *Collector {
    if pageSize <= 0 { pageSize = 100 }
    return &Collector{src: src, pageSize: pageSize}
}

// Collect fetches every worklog of ref. The summary is requested from Jira
// only when ref does not carry one already.
func (c *Collector) Collect(ctx context.Context, ref domain.IssueRef) ([]domain.WorklogRow, error) {
    summary := ref.Summary
    if summary == "" {
        s, err := c.src.IssueSummary(ctx, ref.Key)
        if err != nil { return nil, fmt.Errorf("summary of %s: %w", ref.Key, err) }
        summary = s
    }
    logs, err := pager.FetchAll(ctx, c.pageSize, func(ctx context.Context, startAt, max int) (pager.Page[jira.Worklog], error) {
        res, err := c.src.Worklogs(ctx, ref.Key, startAt, max)
        if err != nil { return pager.Page[jira.Worklog]{}, err }
        return res.Page(), nil
    })
    if err != nil { return nil, fmt.Errorf("worklogs of %s: %w", ref.Key, err) }

    workItem := ref.Key + " - " + summary
    rows := make([]domain.WorklogRow, 0, len(logs))
    for _, wl := range logs {
        rows = append(rows, domain.WorklogRow{
            IssueKey:  ref.Key,
            Assignee:  wl.Author.DisplayName,
            Date:      wl.Started,
            WorkItem:  workItem,
            TimeSpent: wl.TimeSpent,
            Comment:   commentText(wl.Comment),
        })
    }
    return rows, nil
}

type adfNode struct {
    Text    string    `json:"text"`
    Content []adfNode `json:"content"`
}

// commentText returns the first text run of an ADF document
// (content[0].content[0].text). A plain JSON string is returned as is;
// anything else yields "".
func commentText(raw json.RawMessage) string {
    if len(raw) == 0 { return "" }
    var plain string
    if err := json.Unmarshal(raw, &plain); err == nil { return plain }
    var doc adfNode
    if err := json.Unmarshal(raw, &doc); err != nil { return "" }
    if len(doc.Content) == 0 || len(doc.Content[0].Content) == 0 { return "" }
    return doc.Content[0].Content[0].Text
}
