/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    "github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

func NewRouter(cfg config.Config, log zerolog.Logger, svc Service) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(requestID)
    r.Use(func(c *gin.Context){
        start := time.Now()
        c.Next()
        rl := requestLogger(c, log)
        rl.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).
            Dur("took", time.Since(start)).Msg("http")
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/healthz", h.Healthz)
    r.GET("/api/projects/:projectKey/worklogs", h.Worklogs)

    admin := r.Group("/admin", h.RequireAdmin)
    admin.GET("/last-run", h.LastRun)
    admin.POST("/projects/:projectKey/refresh", h.Refresh)

    return r
}

// requestID keeps a sane inbound X-Request-ID or mints one.
func requestID(c *gin.Context) {
    id := c.GetHeader(requestIDHeader)
    if id == "" || len(id) > 128 { id = uuid.NewString() }
    c.Set(requestIDHeader, id)
    c.Header(requestIDHeader, id)
    c.Next()
}

func requestLogger(c *gin.Context, log zerolog.Logger) zerolog.Logger {
    return log.With().Str("request_id", c.GetString(requestIDHeader)).Logger()
}
