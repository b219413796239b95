package cli

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "text/tabwriter"
    "time"

    "github.com/emmanyouwell/jira-global-summary-app/internal/domain"
    "github.com/emmanyouwell/jira-global-summary-app/internal/query"
    "github.com/fatih/color"
    "github.com/spf13/cobra"
)

// ReportCmd returns the report command
func ReportCmd() *cobra.Command {
    var (
        project, search, assignee string
        startAt, pageSize         int
        asJSON                    bool
    )
    cmd := &cobra.Command{
        Use:   "report",
        Short: "Print a project's worklog report using the app credentials",
        RunE: func(cmd *cobra.Command, args []string) error {
            app, err := build(cmd.Context())
            if err != nil { return err }
            defer app.Close()

            ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
            defer cancel()
            res, err := app.Service.Report(ctx, project, domain.FilterCriteria{SearchTerm: search, Assignee: assignee, StartAt: startAt, PageSize: pageSize})
            if err != nil { return fmt.Errorf("report %s: %w", project, err) }
            if asJSON {
                enc := json.NewEncoder(cmd.OutOrStdout())
                enc.SetIndent("", "  ")
                return enc.Encode(res)
            }
            printReport(cmd.OutOrStdout(), project, res)
            return nil
        },
    }
    cmd.Flags().StringVarP(&project, "project", "p", "", "Jira project key")
    cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive substring over assignee, work item and comment")
    cmd.Flags().StringVar(&assignee, "assignee", "", "exact assignee display name")
    cmd.Flags().IntVar(&startAt, "start", 0, "offset into the filtered rows")
    cmd.Flags().IntVar(&pageSize, "size", query.DefaultPageSize, "rows per page")
    cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response body")
    _ = cmd.MarkFlagRequired("project")
    return cmd
}

func printReport(w io.Writer, project string, res query.Result) {
    p := res.Pagination
    fmt.Fprintf(w, "%s  %d-%d of %d\n\n", color.New(color.Bold).Sprint(project), p.StartAt+min(1, len(res.Rows)), p.StartAt+len(res.Rows), p.Total)
    tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
    fmt.Fprintln(tw, "ASSIGNEE\tDATE\tWORK ITEM\tSPENT\tCOMMENT")
    for _, r := range res.Rows {
        fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Assignee, shortDate(r.Date), r.WorkItem, r.TimeSpent, r.Comment)
    }
    _ = tw.Flush()
    if !p.IsLast {
        fmt.Fprintf(w, "\n%s\n", color.New(color.FgCyan).Sprintf("more: --start %d", p.StartAt+p.MaxResults))
    }
}

func shortDate(s string) string {
    if t, ok := query.ParseDate(s); ok { return t.Local().Format("2006-01-02 15:04") }
    return s
}

func exitErr(err error) {
    fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error:"), err)
    os.Exit(1)
}
