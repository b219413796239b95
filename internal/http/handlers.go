/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "crypto/subtle"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
    "github.com/emmanyouwell/jira-global-summary-app/internal/query"
    "github.com/emmanyouwell/jira-global-summary-app/internal/services"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
)

const (
    msgDenied   = "Access denied. You are not allowed to use this app."
    msgInternal = "Internal server error. Please try again later."
)

type Service interface {
    Worklogs(ctx context.Context, authorization, projectKey string, crit domain.FilterCriteria) (query.Result, error)
    Refresh(ctx context.Context, projectKey, trigger string) (domain.AggregationRun, error)
    LastRun(ctx context.Context) (*domain.AggregationRun, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc Service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc Service) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Worklogs(c *gin.Context) {
    crit, err := parseCriteria(c)
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    project := c.Param("projectKey")
    res, err := h.svc.Worklogs(c.Request.Context(), c.GetHeader("Authorization"), project, crit)
    switch {
    case err == nil:
        c.JSON(http.StatusOK, res)
    case errors.Is(err, services.ErrAccessDenied):
        c.JSON(http.StatusForbidden, gin.H{"error": msgDenied})
    case errors.Is(err, services.ErrInvalidProject):
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    default:
        rl := requestLogger(c, h.log)
        rl.Error().Err(err).Str("project", project).Msg("worklogs failed")
        c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
    }
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.LastRun(c.Request.Context())
    if err != nil {
        rl := requestLogger(c, h.log)
        rl.Error().Err(err).Msg("last run lookup failed")
        c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
        return
    }
    c.JSON(http.StatusOK, gin.H{"lastRun": lr})
}

func (h *Handlers) Refresh(c *gin.Context) {
    project := c.Param("projectKey")
    log := requestLogger(c, h.log)
    // detached from the request so the caller does not have to wait
    go func(){
        ctx, cancel := context.WithTimeout(context.Background(), h.refreshTimeout()); defer cancel()
        if _, err := h.svc.Refresh(ctx, project, "admin"); err != nil { log.Error().Err(err).Str("project", project).Msg("admin refresh failed") }
    }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued", "project": project})
}

func (h *Handlers) refreshTimeout() time.Duration {
    if h.cfg.AggregateTimeout > 0 { return h.cfg.AggregateTimeout }
    return 10 * time.Minute
}

// RequireAdmin accepts X-Admin-Token or a Bearer token equal to ADMIN_TOKEN.
// With no token configured the admin routes are closed.
func (h *Handlers) RequireAdmin(c *gin.Context) {
    want := h.cfg.AdminToken
    got := c.GetHeader("X-Admin-Token")
    if got == "" { got = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ") }
    if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
        c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
        return
    }
    c.Next()
}

func parseCriteria(c *gin.Context) (domain.FilterCriteria, error) {
    var crit domain.FilterCriteria
    var err error
    if crit.StartAt, err = intParam(c, "startAt"); err != nil { return crit, err }
    if crit.PageSize, err = intParam(c, "pageSize"); err != nil { return crit, err }
    crit.SearchTerm = c.Query("search")
    if crit.SearchTerm == "" { crit.SearchTerm = c.Query("searchTerm") }
    crit.Assignee = c.Query("assignee")
    if crit.From, err = dayParam(c, "from", false); err != nil { return crit, err }
    if crit.To, err = dayParam(c, "to", true); err != nil { return crit, err }
    if crit.From != nil && crit.To != nil && crit.To.Before(*crit.From) { return crit, errors.New("to is before from") }
    return crit, nil
}

func intParam(c *gin.Context, name string) (int, error) {
    v := c.Query(name)
    if v == "" { return 0, nil }
    n, err := strconv.Atoi(v)
    if err != nil || n < 0 { return 0, fmt.Errorf("%s must be a non-negative integer", name) }
    return n, nil
}

// dayParam accepts YYYY-MM-DD in the local zone or RFC 3339. A bare day used
// as an upper bound covers the whole day.
func dayParam(c *gin.Context, name string, endOfDay bool) (*time.Time, error) {
    v := c.Query(name)
    if v == "" { return nil, nil }
    if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
        if endOfDay { t = t.Add(24*time.Hour - time.Nanosecond) }
        return &t, nil
    }
    t, err := time.Parse(time.RFC3339, v)
    if err != nil { return nil, fmt.Errorf("%s must be YYYY-MM-DD or RFC 3339", name) }
    return &t, nil
}
