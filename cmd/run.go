package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/m4ck-y/nom024-Airflow/internal/dataset"
)

var runCmd = &cobra.Command{
	Use:   "run [pipeline...]",
	Short: "Run registered pipelines",
	Long:  "Runs the named pipelines, or every registered pipeline when none is named. Pipelines that are not due on their cadence are skipped unless --force is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		force, _ := cmd.Flags().GetBool("force")
		defsFile, _ := cmd.Flags().GetString("definitions")
		if defsFile == "" {
			defsFile = cfg.Pipelines.DefinitionsFile
		}

		reg, err := loadRegistry(defsFile)
		if err != nil {
			return err
		}

		runs, err := openRunLog(ctx, cfg.Store.RunLogPath)
		if err != nil {
			return err
		}
		defer runs.Close() //nolint:errcheck

		engine := dataset.NewEngine(newOrchestrator(cfg), runs, reg, cfg.Ingest.DownloadDir, cfg.Store.Location)
		sum, err := engine.Run(ctx, dataset.RunOpts{Names: args, Force: force})
		if err != nil {
			return eris.Wrap(err, "run")
		}

		formatSummary(cmd.OutOrStdout(), sum)
		if !sum.OK() {
			cmd.SilenceUsage = true
			return eris.Errorf("run: %d pipeline(s) failed: %s", len(sum.Failed), strings.Join(sum.Failed, ", "))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("force", false, "run pipelines even when they are not due")
	runCmd.Flags().String("definitions", "", "YAML file with extra pipeline definitions (overrides pipelines.definitions_file)")
	rootCmd.AddCommand(runCmd)
}

// formatSummary writes one line per result group to out.
func formatSummary(out io.Writer, s dataset.Summary) {
	groups := []struct {
		label string
		names []string
	}{
		{"succeeded", s.Succeeded},
		{"skipped", s.Skipped},
		{"failed", s.Failed},
	}
	for _, g := range groups {
		list := "-"
		if len(g.names) > 0 {
			list = strings.Join(g.names, ", ")
		}
		_, _ = fmt.Fprintf(out, "%-10s %d  %s\n", g.label+":", len(g.names), list)
	}
}
