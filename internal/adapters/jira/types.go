package jira

import (
    "encoding/json"

    "github.com/emmanyouwell/jira-global-summary-app/internal/pager"
)

type User struct {
    AccountID   string `json:"accountId"`
    DisplayName string `json:"displayName"`
}

type Group struct {
    Name    string `json:"name"`
    GroupID string `json:"groupId"`
}

type Issue struct {
    ID     string `json:"id"`
    Key    string `json:"key"`
    Fields struct {
        Summary string `json:"summary"`
    } `json:"fields"`
}

type SearchResult struct {
    StartAt    int     `json:"startAt"`
    MaxResults int     `json:"maxResults"`
    Total      int     `json:"total"`
    Issues     []Issue `json:"issues"`
}

func (r SearchResult) Page() pager.Page[Issue] {
    return pager.Page[Issue]{Items: r.Issues, StartAt: r.StartAt, MaxResults: r.MaxResults, Total: r.Total}
}

// Worklog keeps the comment raw: it is an Atlassian Document Format object
// in API v3 but its shape is not guaranteed.
type Worklog struct {
    ID               string          `json:"id"`
    Author           User            `json:"author"`
    Started          string          `json:"started"`
    TimeSpent        string          `json:"timeSpent"`
    TimeSpentSeconds int             `json:"timeSpentSeconds"`
    Comment          json.RawMessage `json:"comment,omitempty"`
}

type WorklogResult struct {
    StartAt    int       `json:"startAt"`
    MaxResults int       `json:"maxResults"`
    Total      int       `json:"total"`
    Worklogs   []Worklog `json:"worklogs"`
}

func (r WorklogResult) Page() pager.Page[Worklog] {
    return pager.Page[Worklog]{Items: r.Worklogs, StartAt: r.StartAt, MaxResults: r.MaxResults, Total: r.Total}
}

type RoleActor struct {
    ID          int64       `json:"id"`
    DisplayName string      `json:"displayName"`
    Type        string      `json:"type"`
    ActorUser   *ActorUser  `json:"actorUser,omitempty"`
    ActorGroup  *ActorGroup `json:"actorGroup,omitempty"`
}

type ActorUser struct {
    AccountID string `json:"accountId"`
}

type ActorGroup struct {
    Name    string `json:"name"`
    GroupID string `json:"groupId"`
}

type ProjectRole struct {
    ID     int64       `json:"id"`
    Name   string      `json:"name"`
    Actors []RoleActor `json:"actors"`
}
