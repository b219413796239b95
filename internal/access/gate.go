// Package access decides whether a Jira user may read a project's worklog
// report. The policy is data: either an allow-list of groups, or a deny-list
// of groups plus a deny-list of project roles.
package access

import (
    "context"
    "fmt"
    "sort"
    "strings"

    "github.com/emmanyouwell/jira-global-summary-app/internal/adapters/jira"
    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
    "github.com/rs/zerolog"
)

type Mode string

const (
    ModeAllow Mode = "allow"
    ModeDeny  Mode = "deny"
)

type Policy struct {
    Mode           Mode
    Groups         map[string]struct{}
    ForbiddenRoles map[string]struct{}
}

// NewPolicy builds a policy from configuration values. Unknown modes are
// rejected so a typo cannot silently open access.
func NewPolicy(mode string, groups, forbiddenRoles []string) (Policy, error) {
    m := Mode(strings.ToLower(strings.TrimSpace(mode)))
    if m == "" { m = ModeAllow }
    if m != ModeAllow && m != ModeDeny { return Policy{}, fmt.Errorf("access: unknown mode %q", mode) }
    return Policy{Mode: m, Groups: toSet(groups), ForbiddenRoles: toSet(forbiddenRoles)}, nil
}

func toSet(names []string) map[string]struct{} {
    out := make(map[string]struct{}, len(names))
    for _, n := range names {
        n = strings.TrimSpace(n)
        if n != "" { out[n] = struct{}{} }
    }
    return out
}

// Directory is the slice of the Jira API the gate needs.
type Directory interface {
    Myself(ctx context.Context) (jira.User, error)
    UserGroups(ctx context.Context, accountID string) ([]jira.Group, error)
    ProjectRoles(ctx context.Context, projectKey string) (map[string]int64, error)
    ProjectRole(ctx context.Context, projectKey string, roleID int64) (jira.ProjectRole, error)
}

type Gate struct {
    policy Policy
    log    zerolog.Logger
}

func NewGate(policy Policy, log zerolog.Logger) *Gate { return &Gate{policy: policy, log: log} }

// Check resolves the caller through caller and their memberships through
// app, which must be able to read groups and roles the caller cannot.
// Any lookup failure is returned as an error and never as an allow.
func (g *Gate) Check(ctx context.Context, caller, app Directory, projectKey string) (domain.AccessDecision, domain.Identity, error) {
    me, err := caller.Myself(ctx)
    if err != nil { return domain.AccessDecision{}, domain.Identity{}, fmt.Errorf("access: resolve caller: %w", err) }
    id := domain.Identity{AccountID: me.AccountID, DisplayName: me.DisplayName}
    if id.AccountID == "" { return domain.AccessDecision{}, id, fmt.Errorf("access: caller has no account id") }

    groups, err := app.UserGroups(ctx, id.AccountID)
    if err != nil { return domain.AccessDecision{}, id, fmt.Errorf("access: groups of %s: %w", id.AccountID, err) }
    names := make([]string, 0, len(groups))
    member := make(map[string]struct{}, len(groups))
    for _, gr := range groups {
        names = append(names, gr.Name)
        member[gr.Name] = struct{}{}
    }
    g.log.Debug().Str("account", id.AccountID).Str("user", id.DisplayName).Strs("groups", names).Msg("access: resolved groups")

    var d domain.AccessDecision
    switch g.policy.Mode {
    case ModeDeny:
        d, err = g.checkDeny(ctx, app, projectKey, id, member)
        if err != nil { return domain.AccessDecision{}, id, err }
    default:
        d = g.checkAllow(member)
    }
    if !d.Allowed {
        g.log.Info().Str("account", id.AccountID).Str("user", id.DisplayName).Str("project", projectKey).Str("reason", d.Reason).Msg("access denied")
    }
    return d, id, nil
}

func (g *Gate) checkAllow(member map[string]struct{}) domain.AccessDecision {
    for name := range g.policy.Groups {
        if _, ok := member[name]; ok { return domain.AccessDecision{Allowed: true, Reason: "group " + name} }
    }
    return domain.AccessDecision{Allowed: false, Reason: "not in allowed groups: " + joinSet(g.policy.Groups)}
}

func (g *Gate) checkDeny(ctx context.Context, app Directory, projectKey string, id domain.Identity, member map[string]struct{}) (domain.AccessDecision, error) {
    for name := range g.policy.Groups {
        if _, ok := member[name]; ok { return domain.AccessDecision{Allowed: false, Reason: "forbidden group " + name}, nil }
    }
    if len(g.policy.ForbiddenRoles) == 0 { return domain.AccessDecision{Allowed: true}, nil }

    roles, err := app.ProjectRoles(ctx, projectKey)
    if err != nil { return domain.AccessDecision{}, fmt.Errorf("access: roles of %s: %w", projectKey, err) }
    for name, roleID := range roles {
        if _, forbidden := g.policy.ForbiddenRoles[name]; !forbidden { continue }
        role, err := app.ProjectRole(ctx, projectKey, roleID)
        if err != nil { return domain.AccessDecision{}, fmt.Errorf("access: role %s of %s: %w", name, projectKey, err) }
        for _, a := range role.Actors {
            if a.ActorUser != nil && a.ActorUser.AccountID == id.AccountID {
                return domain.AccessDecision{Allowed: false, Reason: "forbidden role " + name}, nil
            }
            if a.ActorGroup != nil {
                if _, ok := member[a.ActorGroup.Name]; ok {
                    return domain.AccessDecision{Allowed: false, Reason: "forbidden role " + name + " via group " + a.ActorGroup.Name}, nil
                }
            }
        }
    }
    return domain.AccessDecision{Allowed: true}, nil
}

func joinSet(s map[string]struct{}) string {
    out := make([]string, 0, len(s))
    for k := range s { out = append(out, k) }
    sort.Strings(out)
    return strings.Join(out, ", ")
}
