package domain

import "time"

// WorklogRow is one normalized worklog line of the project report.
type WorklogRow struct {
    IssueKey  string `json:"issueKey"`
    Assignee  string `json:"assignee"`
    Date      string `json:"date"`
    WorkItem  string `json:"workItem"`
    TimeSpent string `json:"timeSpent"`
    Comment   string `json:"comment"`
}

// IssueRef identifies an issue to collect. Summary may be empty.
type IssueRef struct {
    Key     string
    Summary string
}

type Identity struct {
    AccountID   string `json:"accountId"`
    DisplayName string `json:"displayName"`
}

type FilterCriteria struct {
    SearchTerm string
    StartAt    int
    PageSize   int
    Assignee   string
    From       *time.Time
    To         *time.Time
}

type Pagination struct {
    StartAt    int  `json:"startAt"`
    MaxResults int  `json:"maxResults"`
    Total      int  `json:"total"`
    IsLast     bool `json:"isLast"`
}

type AccessDecision struct {
    Allowed bool
    Reason  string
}

type AggregationRun struct {
    ID           string     `json:"id"`
    Project      string     `json:"project"`
    Trigger      string     `json:"trigger"`
    Issues       int        `json:"issues"`
    FailedIssues int        `json:"failedIssues"`
    Rows         int        `json:"rows"`
    StartedAt    time.Time  `json:"startedAt"`
    FinishedAt   *time.Time `json:"finishedAt,omitempty"`
    Success      bool       `json:"success"`
    Error        string     `json:"error,omitempty"`
}

type AccessEvent struct {
    AccountID   string
    DisplayName string
    Project     string
    Allowed     bool
    Reason      string
    At          time.Time
}
