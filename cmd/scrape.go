package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/m4ck-y/nom024-Airflow/internal/dataset"
	"github.com/m4ck-y/nom024-Airflow/internal/db"
	"github.com/m4ck-y/nom024-Airflow/internal/fetcher"
	"github.com/m4ck-y/nom024-Airflow/internal/pipeline"
	"github.com/m4ck-y/nom024-Airflow/internal/transform"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Ingest the first usable file linked from a page",
	Long:  "Runs a one-off pipeline against --url with the standard cleaning chain and writes the result to --store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := scrapeParams(cmd)
		if err != nil {
			return err
		}
		out := newOrchestrator(cfg).Execute(cmd.Context(), p)
		formatOutcome(cmd.OutOrStdout(), out)
		if !out.OK {
			cmd.SilenceUsage = true
			return eris.Wrap(out.Err, "scrape")
		}
		return nil
	},
}

func init() {
	f := scrapeCmd.Flags()
	f.String("url", "", "catalog page to scan (required)")
	f.String("download-dir", "", "scratch directory (default ingest.download_dir)")
	f.String("table", "data", "destination table")
	f.String("store", "", "SQLite path or postgres:// URL (default store.location)")
	f.String("policy", "", "fail, replace or append (default store.policy)")
	f.StringSlice("required", nil, "columns that must exist after cleaning")
	f.StringToString("map", nil, "rename spreadsheet headers, e.g. --map \"Codigo Pais=codigo_pais\"")
	f.String("sheet-name", "", "worksheet to read")
	f.Int("sheet-index", 0, "worksheet position when --sheet-name is not set")
	_ = scrapeCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(scrapeCmd)
}

// scrapeParams turns flags and config into orchestrator parameters.
func scrapeParams(cmd *cobra.Command) (pipeline.Params, error) {
	f := cmd.Flags()
	pageURL, _ := f.GetString("url")
	downloadDir, _ := f.GetString("download-dir")
	table, _ := f.GetString("table")
	location, _ := f.GetString("store")
	policyStr, _ := f.GetString("policy")
	required, _ := f.GetStringSlice("required")
	mapping, _ := f.GetStringToString("map")
	sheetName, _ := f.GetString("sheet-name")
	sheetIndex, _ := f.GetInt("sheet-index")

	if downloadDir == "" {
		downloadDir = cfg.Ingest.DownloadDir
	}
	if location == "" {
		location = cfg.Store.Location
	}
	if policyStr == "" {
		policyStr = cfg.Store.Policy
	}
	policy, err := db.ParsePolicy(policyStr)
	if err != nil {
		return pipeline.Params{}, err
	}

	return pipeline.Params{
		PageURL:     pageURL,
		DownloadDir: downloadDir,
		Transform: transform.Standard(transform.Options{
			ColumnMapping: transform.CleanMapping(mapping),
			Required:      required,
			Metadata: map[string]any{
				dataset.ProcessedAtColumn: time.Now().UTC(),
				dataset.SourceColumn:      pageURL,
			},
		}),
		Table:  table,
		Store:  location,
		Policy: policy,
		Sheet:  fetcher.SheetSelector{Name: sheetName, Index: sheetIndex},
	}, nil
}

// formatOutcome writes a short report of a single pipeline run.
func formatOutcome(out io.Writer, o pipeline.Outcome) {
	if o.OK {
		_, _ = fmt.Fprintf(out, "stored %d rows from %s in %s\n", o.Rows, o.Source, o.Elapsed.Round(time.Millisecond))
		return
	}
	_, _ = fmt.Fprintf(out, "failed after %d of %d candidates: %v\n", len(o.Attempts), o.Candidates, o.Err)
	for _, a := range o.Attempts {
		_, _ = fmt.Fprintf(out, "  %s: %v\n", a.URL, a.Err)
	}
}
