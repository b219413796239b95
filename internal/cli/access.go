package cli

import (
    "fmt"
    "os"

    "github.com/fatih/color"
    "github.com/spf13/cobra"
)

// AccessCmd returns the access command
func AccessCmd() *cobra.Command {
    var project, auth string
    cmd := &cobra.Command{
        Use:   "access",
        Short: "Check whether the holder of an Authorization header may read a project",
        Long: `Runs the configured access policy for the user behind --auth.
The header value is sent to Jira unchanged, for example "Bearer <token>".
JIRA_USER_AUTH is read when --auth is omitted.`,
        RunE: func(cmd *cobra.Command, args []string) error {
            if auth == "" { auth = os.Getenv("JIRA_USER_AUTH") }
            if auth == "" { return fmt.Errorf("--auth is required") }
            app, err := build(cmd.Context())
            if err != nil { return err }
            defer app.Close()

            d, id, err := app.Service.CheckAccessAs(cmd.Context(), auth, project)
            if err != nil { return err }
            verdict := color.New(color.FgGreen).Sprint("ALLOWED")
            if !d.Allowed { verdict = color.New(color.FgRed).Sprint("DENIED") }
            fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%s) on %s\n", verdict, id.DisplayName, id.AccountID, project)
            if d.Reason != "" { fmt.Fprintf(cmd.OutOrStdout(), "   %s\n", d.Reason) }
            return nil
        },
    }
    cmd.Flags().StringVarP(&project, "project", "p", "", "Jira project key")
    cmd.Flags().StringVar(&auth, "auth", "", "Authorization header of the user to check")
    _ = cmd.MarkFlagRequired("project")
    return cmd
}
