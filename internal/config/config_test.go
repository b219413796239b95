package config

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoad_AccessGroupsFollowMode(t *testing.T) {
    t.Setenv("ACCESS_GROUPS", "")
    t.Setenv("ACCESS_MODE", "")
    cfg := Load()
    assert.Equal(t, "allow", cfg.AccessMode)
    assert.Equal(t, []string{"Developers", "administrators"}, cfg.AccessGroups)

    t.Setenv("ACCESS_MODE", " Deny ")
    cfg = Load()
    assert.Equal(t, "deny", cfg.AccessMode)
    assert.Empty(t, cfg.AccessGroups)

    t.Setenv("ACCESS_GROUPS", "Contractors, Interns")
    cfg = Load()
    assert.Equal(t, []string{"Contractors", "Interns"}, cfg.AccessGroups)
}

func TestLoad_NoRetryByDefault(t *testing.T) {
    t.Setenv("JIRA_RETRY_ATTEMPTS", "")
    assert.Equal(t, 1, Load().JiraRetryAttempts)

    t.Setenv("JIRA_RETRY_ATTEMPTS", "0")
    assert.Equal(t, 1, Load().JiraRetryAttempts)

    t.Setenv("JIRA_RETRY_ATTEMPTS", "3")
    assert.Equal(t, 3, Load().JiraRetryAttempts)
}

func TestValidate_IssueJQLTemplate(t *testing.T) {
    cfg := Config{JiraBaseURL: "https://jira.local", JiraIssueJQL: DefaultIssueJQL}
    require.NoError(t, cfg.Validate())

    cfg.JiraIssueJQL = `project = %s AND summary ~ "100%%"`
    assert.NoError(t, cfg.Validate())

    for _, bad := range []string{`project = P`, `project = %s OR project = %s`, `project = %d`, `project = %s AND x = %v`} {
        cfg.JiraIssueJQL = bad
        assert.Error(t, cfg.Validate(), bad)
    }

    assert.Error(t, Config{JiraIssueJQL: DefaultIssueJQL}.Validate())
}
