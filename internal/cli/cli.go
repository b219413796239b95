// Package cli implements the worklogs command line.
package cli

import (
    "context"
    "os"

    "github.com/emmanyouwell/jira-global-summary-app/internal/config"
    "github.com/emmanyouwell/jira-global-summary-app/internal/logger"
    "github.com/emmanyouwell/jira-global-summary-app/internal/wire"
    "github.com/spf13/cobra"
)

func build(ctx context.Context) (*wire.App, error) {
    cfg := config.Load()
    log := logger.NewWithWriter(cfg, os.Stderr)
    return wire.Build(ctx, cfg, log)
}

// RootCmd returns the worklogs root command with all subcommands attached.
func RootCmd() *cobra.Command {
    root := &cobra.Command{
        Use:   "worklogs",
        Short: "Jira worklog reports from the command line",
        Long: `worklogs aggregates every worklog of a Jira project, as the API server does,
and prints it as a filtered, paginated report. Configuration is read from the
same environment variables as the server.`,
        SilenceUsage: true,
    }
    root.AddCommand(ReportCmd())
    root.AddCommand(AccessCmd())
    return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
    if err := RootCmd().ExecuteContext(context.Background()); err != nil { exitErr(err) }
}
