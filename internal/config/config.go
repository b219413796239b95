/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "errors"
    "fmt"
    "log"
    "os"
    "strconv"
    "strings"
    "time"
)

type Config struct {
    AppEnv   string
    TZ       string
    HTTPAddr string

    // DBDSN is optional; run history and the access audit are kept in memory without it.
    DBDSN string

    JiraBaseURL  string
    JiraPAT      string
    JiraUsername string
    JiraPassword string
    JiraProjects []string
    // JiraIssueJQL is a fmt template receiving the quoted project key.
    JiraIssueJQL        string
    JiraSearchPageSize  int
    JiraWorklogPageSize int
    // JiraRetryAttempts counts tries per request; 1 means no retry.
    JiraRetryAttempts int

    MaxConcurrency   int
    HTTPTimeout      time.Duration
    CacheTTL         time.Duration
    AggregateTimeout time.Duration

    AccessMode           string
    AccessGroups         []string
    AccessForbiddenRoles []string

    AdminToken string
    WarmupCron string
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

func parseStrings(csv string) []string {
    if csv == "" { return nil }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        out = append(out, p)
    }
    return out
}

const DefaultIssueJQL = `project = %s AND worklogAuthor IS NOT EMPTY`

var DefaultAccessGroups = []string{"Developers", "administrators"}

func Load() Config {
    cfg := Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        TZ:       getenv("APP_TZ", "UTC"),
        HTTPAddr: getenv("HTTP_ADDR", ":8080"),

        DBDSN: getenv("DB_DSN", ""),

        JiraBaseURL:         getenv("JIRA_BASE_URL", ""),
        JiraPAT:             getenv("JIRA_PAT", ""),
        JiraUsername:        getenv("JIRA_USERNAME", ""),
        JiraPassword:        getenv("JIRA_PASSWORD", ""),
        JiraProjects:        parseStrings(getenv("JIRA_PROJECTS", "")),
        JiraIssueJQL:        getenv("JIRA_ISSUE_JQL", DefaultIssueJQL),
        JiraSearchPageSize:  atoi("JIRA_SEARCH_PAGE_SIZE", 100),
        JiraWorklogPageSize: atoi("JIRA_WORKLOG_PAGE_SIZE", 100),
        JiraRetryAttempts:   atoi("JIRA_RETRY_ATTEMPTS", 1),

        MaxConcurrency:   atoi("MAX_CONCURRENCY", 5),
        HTTPTimeout:      dur("HTTP_TIMEOUT", 15*time.Second),
        CacheTTL:         dur("CACHE_TTL", 5*time.Minute),
        AggregateTimeout: dur("AGGREGATE_TIMEOUT", 0),

        AccessMode:           strings.ToLower(strings.TrimSpace(getenv("ACCESS_MODE", "allow"))),
        AccessGroups:         parseStrings(getenv("ACCESS_GROUPS", "")),
        AccessForbiddenRoles: parseStrings(getenv("ACCESS_FORBIDDEN_ROLES", "")),

        AdminToken: getenv("ADMIN_TOKEN", ""),
        WarmupCron: getenv("WARMUP_CRON", ""),
    }

    if cfg.MaxConcurrency <= 0 { cfg.MaxConcurrency = 5 }
    if cfg.JiraSearchPageSize <= 0 { cfg.JiraSearchPageSize = 100 }
    if cfg.JiraWorklogPageSize <= 0 { cfg.JiraWorklogPageSize = 100 }
    if cfg.JiraRetryAttempts <= 0 { cfg.JiraRetryAttempts = 1 }
    // the built-in group list is an allow-list; deny mode forbids nothing by default
    if len(cfg.AccessGroups) == 0 && cfg.AccessMode == "allow" { cfg.AccessGroups = append([]string(nil), DefaultAccessGroups...) }

    // set global timezone if available
    if loc, err := time.LoadLocation(cfg.TZ); err == nil {
        time.Local = loc
    } else {
        log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
    }
    return cfg
}

// Validate rejects settings that would only fail later, at request time.
func (c Config) Validate() error {
    if c.JiraBaseURL == "" { return errors.New("JIRA_BASE_URL is required") }
    tpl := strings.ReplaceAll(c.JiraIssueJQL, "%%", "")
    if strings.Count(tpl, "%s") != 1 || strings.Count(tpl, "%") != 1 {
        return fmt.Errorf("JIRA_ISSUE_JQL must contain exactly one %%s for the project key: %q", c.JiraIssueJQL)
    }
    return nil
}
