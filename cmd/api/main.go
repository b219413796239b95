/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    apihttp "github.com/emmanyouwell/jira-global-summary-app/internal/http"
    "github.com/emmanyouwell/jira-global-summary-app/internal/jobs"
    "github.com/emmanyouwell/jira-global-summary-app/internal/logger"
    "github.com/emmanyouwell/jira-global-summary-app/internal/wire"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    app, err := wire.Build(ctx, cfg, log)
    if err != nil { log.Fatal().Err(err).Msg("startup failed") }
    defer app.Close()

    log.Info().Str("addr", cfg.HTTPAddr).Str("access_mode", cfg.AccessMode).Strs("projects", cfg.JiraProjects).
        Int("max_concurrency", cfg.MaxConcurrency).Dur("cache_ttl", cfg.CacheTTL).Msg("starting")

    // Cron
    cron, err := jobs.NewCron(cfg, log, app.Service, app.Store)
    if err != nil { log.Fatal().Err(err).Msg("cron setup failed") }
    if cfg.WarmupCron != "" {
        cron.Start()
        defer cron.Stop()
    }

    // HTTP server (Gin)
    router := apihttp.NewRouter(cfg, log, app.Service)
    srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- srv.ListenAndServe() }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil && !errors.Is(err, http.ErrServerClosed) { log.Error().Err(err).Msg("http server error") }
    }

    sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second); defer scancel()
    if err := srv.Shutdown(sctx); err != nil { log.Error().Err(err).Msg("http shutdown") }
}
