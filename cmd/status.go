package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/m4ck-y/nom024-Airflow/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the run log",
	Long:  "Displays the most recent pipeline runs, newest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := openRunLog(ctx, cfg.Store.RunLogPath)
		if err != nil {
			return err
		}
		defer runs.Close() //nolint:errcheck

		list, err := runs.List(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		if len(list) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded, run 'ingest-cli run' to start.")
			return nil
		}
		formatRuns(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 20, "number of runs to show")
	rootCmd.AddCommand(statusCmd)
}

// formatRuns writes a tabular representation of runs to w.
func formatRuns(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPIPELINE\tSTATUS\tSTARTED\tDURATION\tROWS\tSOURCE\tERROR")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t-------\t--------\t----\t------\t-----")

	for _, r := range runs {
		dur := "-"
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Pipeline,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.Rows,
			truncate(r.Source, 50),
			truncate(r.Error, 60),
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
