package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/m4ck-y/nom024-Airflow/internal/dataset"
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List registered pipelines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		defsFile, _ := cmd.Flags().GetString("definitions")
		if defsFile == "" {
			defsFile = cfg.Pipelines.DefinitionsFile
		}
		reg, err := loadRegistry(defsFile)
		if err != nil {
			return err
		}
		formatDefinitions(cmd.OutOrStdout(), reg.All(), cfg.Store.Location)
		return nil
	},
}

func init() {
	pipelinesCmd.Flags().String("definitions", "", "YAML file with extra pipeline definitions (overrides pipelines.definitions_file)")
	rootCmd.AddCommand(pipelinesCmd)
}

// formatDefinitions writes a tabular list of definitions to w.
func formatDefinitions(out io.Writer, defs []dataset.Definition, defaultStore string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCADENCE\tTABLE\tPOLICY\tSTORE\tPAGE")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----\t------\t-----\t----")
	for _, d := range defs {
		store := d.Store
		if store == "" {
			store = defaultStore
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name, d.Cadence, d.Table, d.Policy, store, d.PageURL)
	}
	_ = w.Flush()
}
