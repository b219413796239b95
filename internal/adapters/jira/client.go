/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/rs/zerolog"
)

// Client talks to the Jira Cloud REST API v3 as one identity. NewClient
// returns the app identity configured for the service; AsUser derives a
// client that forwards a caller's own Authorization header instead.
type Client struct {
    baseURL  string
    token    string
    user     string
    pass     string
    authz    string
    identity string
    http     *http.Client
    log      zerolog.Logger
    attempts int
    backoff  time.Duration
}

// NewClient sends every request once unless cfg.JiraRetryAttempts asks for
// retries of 429/5xx answers.
func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    attempts := cfg.JiraRetryAttempts
    if attempts < 1 { attempts = 1 }
    return &Client{
        baseURL:  cfg.JiraBaseURL,
        token:    cfg.JiraPAT,
        user:     cfg.JiraUsername,
        pass:     cfg.JiraPassword,
        identity: "app",
        http:     &http.Client{Timeout: cfg.HTTPTimeout},
        log:      log,
        attempts: attempts,
        backoff:  300 * time.Millisecond,
    }
}

// AsApp returns a client acting with the service's own credentials.
func (c *Client) AsApp() *Client {
    cp := *c
    cp.authz = ""
    cp.identity = "app"
    return &cp
}

// AsUser returns a client that sends authorization verbatim as the
// Authorization header. An empty value sends no credentials at all, so
// Jira answers as an anonymous user.
func (c *Client) AsUser(authorization string) *Client {
    cp := *c
    cp.authz = strings.TrimSpace(authorization)
    cp.identity = "user"
    return &cp
}

// WithRetry overrides the attempt count and base backoff for 429/5xx responses.
func (c *Client) WithRetry(attempts int, backoff time.Duration) *Client {
    cp := *c
    if attempts < 1 { attempts = 1 }
    cp.attempts = attempts
    cp.backoff = backoff
    return &cp
}

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) authorize(req *http.Request) {
    if c.identity == "user" {
        if c.authz != "" { req.Header.Set("Authorization", c.authz) }
        return
    }
    switch {
    case c.token != "":
        req.Header.Set("Authorization", "Bearer "+c.token)
    case c.user != "" && c.pass != "":
        req.SetBasicAuth(c.user, c.pass)
    }
}

// doJSON performs the request and decodes a 2xx body into out. 429 and 5xx
// responses and transport errors are retried with exponential backoff.
func (c *Client) doJSON(ctx context.Context, method, u string, body any, out any) error {
    if c.baseURL == "" { return errors.New("jira: empty baseURL") }
    var payload []byte
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return err }
        payload = b
    }
    var lastErr error
    for attempt := 0; attempt < c.attempts; attempt++ {
        if attempt > 0 {
            wait := c.backoff * time.Duration(1<<(attempt-1))
            select {
            case <-ctx.Done():
                return ctx.Err()
            case <-time.After(wait):
            }
        }
        var r io.Reader
        if payload != nil { r = bytes.NewReader(payload) }
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return err }
        req.Header.Set("Accept", "application/json")
        if payload != nil { req.Header.Set("Content-Type", "application/json") }
        c.authorize(req)
        retry, err := c.roundTrip(req, out)
        if err == nil { return nil }
        lastErr = err
        if !retry || ctx.Err() != nil { return err }
        c.log.Warn().Err(err).Str("identity", c.identity).Str("url", u).Int("attempt", attempt+1).Msg("jira request failed; retrying")
    }
    return lastErr
}

func (c *Client) roundTrip(req *http.Request, out any) (bool, error) {
    resp, err := c.http.Do(req)
    if err != nil { return true, err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
        return apiErr.Retryable(), apiErr
    }
    if out == nil { return false, nil }
    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        return false, fmt.Errorf("jira: decode %s: %w", req.URL.Path, err)
    }
    return false, nil
}

func pageQuery(startAt, max int) url.Values {
    q := url.Values{}
    q.Set("startAt", strconv.Itoa(startAt))
    if max > 0 { q.Set("maxResults", strconv.Itoa(max)) }
    return q
}

// SearchIssues runs a JQL search returning keys and summaries only.
func (c *Client) SearchIssues(ctx context.Context, jql string, startAt, max int) (SearchResult, error) {
    var out SearchResult
    if strings.TrimSpace(jql) == "" { return out, errors.New("jira: empty jql") }
    q := pageQuery(startAt, max)
    q.Set("jql", jql)
    q.Set("fields", "summary")
    err := c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/3/search", q), nil, &out)
    return out, err
}

// IssueSummary fetches fields.summary of a single issue.
func (c *Client) IssueSummary(ctx context.Context, key string) (string, error) {
    if key == "" { return "", errors.New("jira: empty issue key") }
    q := url.Values{}
    q.Set("fields", "summary")
    var out Issue
    if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/3/issue/"+url.PathEscape(key), q), nil, &out); err != nil {
        return "", err
    }
    return out.Fields.Summary, nil
}

func (c *Client) Worklogs(ctx context.Context, key string, startAt, max int) (WorklogResult, error) {
    var out WorklogResult
    if key == "" { return out, errors.New("jira: empty issue key") }
    path := "/rest/api/3/issue/" + url.PathEscape(key) + "/worklog"
    err := c.doJSON(ctx, http.MethodGet, c.apiURL(path, pageQuery(startAt, max)), nil, &out)
    return out, err
}

// Myself returns the identity the client is acting as.
func (c *Client) Myself(ctx context.Context) (User, error) {
    var out User
    err := c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/3/myself", nil), nil, &out)
    return out, err
}

func (c *Client) UserGroups(ctx context.Context, accountID string) ([]Group, error) {
    if accountID == "" { return nil, errors.New("jira: empty account id") }
    q := url.Values{}
    q.Set("accountId", accountID)
    var out []Group
    err := c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/3/user/groups", q), nil, &out)
    return out, err
}

// ProjectRoles lists the project's roles as name -> role id.
func (c *Client) ProjectRoles(ctx context.Context, projectKey string) (map[string]int64, error) {
    if projectKey == "" { return nil, errors.New("jira: empty project key") }
    var raw map[string]string
    path := "/rest/api/3/project/" + url.PathEscape(projectKey) + "/role"
    if err := c.doJSON(ctx, http.MethodGet, c.apiURL(path, nil), nil, &raw); err != nil { return nil, err }
    out := make(map[string]int64, len(raw))
    for name, self := range raw {
        id, err := roleIDFromURL(self)
        if err != nil {
            c.log.Warn().Err(err).Str("role", name).Str("self", self).Msg("jira: unparseable role url")
            continue
        }
        out[name] = id
    }
    return out, nil
}

func (c *Client) ProjectRole(ctx context.Context, projectKey string, roleID int64) (ProjectRole, error) {
    var out ProjectRole
    if projectKey == "" { return out, errors.New("jira: empty project key") }
    path := "/rest/api/3/project/" + url.PathEscape(projectKey) + "/role/" + strconv.FormatInt(roleID, 10)
    err := c.doJSON(ctx, http.MethodGet, c.apiURL(path, nil), nil, &out)
    return out, err
}

func roleIDFromURL(self string) (int64, error) {
    u, err := url.Parse(self)
    if err != nil { return 0, err }
    p := strings.TrimRight(u.Path, "/")
    idx := strings.LastIndex(p, "/")
    return strconv.ParseInt(p[idx+1:], 10, 64)
}
