package jira

import (
    "context"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
    t.Helper()
    srv := httptest.NewServer(h)
    t.Cleanup(srv.Close)
    cfg := config.Config{JiraBaseURL: srv.URL, JiraPAT: "app-token", HTTPTimeout: 5 * time.Second}
    return NewClient(cfg, zerolog.Nop()).WithRetry(3, time.Millisecond)
}

func TestClient_IdentitiesSendDifferentCredentials(t *testing.T) {
    var seen []string
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        seen = append(seen, r.Header.Get("Authorization"))
        _, _ = w.Write([]byte(`{"accountId":"abc","displayName":"Alice"}`))
    })

    me, err := c.AsUser("Bearer user-token").Myself(context.Background())
    require.NoError(t, err)
    assert.Equal(t, "abc", me.AccountID)
    _, err = c.AsUser("Bearer user-token").AsApp().Myself(context.Background())
    require.NoError(t, err)

    assert.Equal(t, []string{"Bearer user-token", "Bearer app-token"}, seen)
}

func TestClient_RetriesServerErrors(t *testing.T) {
    var calls int32
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        if atomic.AddInt32(&calls, 1) < 3 {
            w.WriteHeader(http.StatusServiceUnavailable)
            return
        }
        _, _ = w.Write([]byte(`{"startAt":0,"maxResults":100,"total":1,"worklogs":[{"id":"1","timeSpent":"1h"}]}`))
    })

    res, err := c.Worklogs(context.Background(), "P-1", 0, 100)
    require.NoError(t, err)
    assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
    assert.Equal(t, "1h", res.Worklogs[0].TimeSpent)
}

func TestClient_SendsOnceByDefault(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        http.Error(w, "boom", http.StatusServiceUnavailable)
    }))
    t.Cleanup(srv.Close)
    c := NewClient(config.Config{JiraBaseURL: srv.URL, JiraPAT: "app-token"}, zerolog.Nop())

    _, err := c.Worklogs(context.Background(), "P-1", 0, 100)
    require.Error(t, err)
    var apiErr *APIError
    require.ErrorAs(t, err, &apiErr)
    assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
    assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
    var calls int32
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
    })

    _, err := c.IssueSummary(context.Background(), "P-404")
    require.Error(t, err)
    assert.True(t, IsNotFound(err))
    assert.False(t, IsUnauthorized(err))
    assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_SearchIssuesQuery(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "/rest/api/3/search", r.URL.Path)
        assert.Equal(t, `project = "P" AND worklogAuthor IS NOT EMPTY`, r.URL.Query().Get("jql"))
        assert.Equal(t, "100", r.URL.Query().Get("startAt"))
        assert.Equal(t, "50", r.URL.Query().Get("maxResults"))
        _, _ = w.Write([]byte(`{"startAt":100,"maxResults":50,"total":101,"issues":[{"key":"P-7","fields":{"summary":"Fix it"}}]}`))
    })

    res, err := c.SearchIssues(context.Background(), `project = "P" AND worklogAuthor IS NOT EMPTY`, 100, 50)
    require.NoError(t, err)
    page := res.Page()
    assert.Equal(t, 101, page.Total)
    assert.Equal(t, "Fix it", page.Items[0].Fields.Summary)
}

func TestClient_ProjectRoles(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case "/rest/api/3/project/P/role":
            _, _ = w.Write([]byte(`{"Support":"https://x.atlassian.net/rest/api/3/project/10000/role/10101","Broken":"::"}`))
        case "/rest/api/3/project/P/role/10101":
            _, _ = w.Write([]byte(`{"id":10101,"name":"Support","actors":[{"id":1,"type":"atlassian-user-role-actor","actorUser":{"accountId":"abc"}}]}`))
        default:
            http.NotFound(w, r)
        }
    })

    roles, err := c.ProjectRoles(context.Background(), "P")
    require.NoError(t, err)
    assert.Equal(t, map[string]int64{"Support": 10101}, roles)

    role, err := c.ProjectRole(context.Background(), "P", 10101)
    require.NoError(t, err)
    require.Len(t, role.Actors, 1)
    assert.Equal(t, "abc", role.Actors[0].ActorUser.AccountID)
}

func TestClient_EmptyBaseURL(t *testing.T) {
    c := NewClient(config.Config{}, zerolog.Nop())
    _, err := c.Myself(context.Background())
    assert.EqualError(t, err, "jira: empty baseURL")
}
