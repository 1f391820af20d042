package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
	"github.com/m4ck-y/nom024-Airflow/internal/scrape"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "List data links found on a page",
	Long:  "Prints every archive and spreadsheet link on --url in document order, without downloading them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		pageURL, _ := cmd.Flags().GetString("url")
		asJSON, _ := cmd.Flags().GetBool("json")

		d := scrape.NewDiscoverer(newFetcher(cfg))
		cands, err := d.FindCandidates(cmd.Context(), pageURL, cfg.Ingest.Extensions())
		if err != nil {
			return eris.Wrap(err, "links")
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cands)
		}
		formatCandidates(cmd.OutOrStdout(), cands)
		return nil
	},
}

func init() {
	linksCmd.Flags().String("url", "", "catalog page to scan (required)")
	linksCmd.Flags().Bool("json", false, "print candidates as JSON")
	_ = linksCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(linksCmd)
}

// formatCandidates writes a tabular list of candidates to w.
func formatCandidates(out io.Writer, cands []model.LinkCandidate) {
	if len(cands) == 0 {
		_, _ = fmt.Fprintln(out, "No data links found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCLASS\tEXT\tURL")
	_, _ = fmt.Fprintln(w, "-\t-----\t---\t---")
	for i, c := range cands {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, c.Class, c.Extension, c.URL)
	}
	_ = w.Flush()
}
