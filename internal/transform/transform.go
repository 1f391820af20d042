// Package transform cleans tables between loading and persistence. Every
// stage returns a new table and leaves its input untouched.
package transform

import (
	"regexp"
	"sort"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// Stage is one table-to-table step.
type Stage func(model.Table) (model.Table, error)

// Chain runs stages in order and stops at the first error.
func Chain(stages ...Stage) Stage {
	return func(t model.Table) (model.Table, error) {
		var err error
		for _, s := range stages {
			if s == nil {
				continue
			}
			if t, err = s(t); err != nil {
				return model.Table{}, err
			}
		}
		return t, nil
	}
}

// Identity returns its input.
func Identity(t model.Table) (model.Table, error) { return t, nil }

// Options selects the stages Standard assembles.
type Options struct {
	ColumnMapping map[string]string
	// TextColumns restricts StandardizeText; empty means every text column.
	TextColumns []string
	Required    []string

	Types     map[string]model.ColumnType
	TitleCase []string
	// ZeroPad left-pads the named columns with '0' to the given width.
	ZeroPad     map[string]int
	DropMissing []string
	UniqueBy    []string
	// Patterns log a warning for cells that do not match; checked after
	// padding.
	Patterns map[string]*regexp.Regexp

	Metadata map[string]any
	SortBy   string
	RowID    string
}

// Standard builds the canonical cleaning chain. Names are cleaned before the
// mapping is applied, required columns are checked after it, and duplicates
// are removed only once blank rows are gone.
func Standard(opts Options) Stage {
	stages := []Stage{
		CleanColumnNames,
		ApplyColumnMapping(opts.ColumnMapping),
		DropEmptyRowsAndColumns,
		StandardizeText(opts.TextColumns...),
		ValidateRequiredColumns(opts.Required...),
	}
	if len(opts.Types) > 0 {
		stages = append(stages, CoerceTypes(opts.Types))
	}
	if len(opts.TitleCase) > 0 {
		stages = append(stages, TitleCase(opts.TitleCase...))
	}
	for _, col := range sortedKeys(opts.ZeroPad) {
		stages = append(stages, PadLeft(col, opts.ZeroPad[col], '0'))
	}
	for _, col := range sortedKeys(opts.Patterns) {
		stages = append(stages, WarnMismatches(col, opts.Patterns[col]))
	}
	if len(opts.DropMissing) > 0 {
		stages = append(stages, DropRowsMissing(opts.DropMissing...))
	}
	stages = append(stages, DropDuplicateRows)
	if len(opts.UniqueBy) > 0 {
		stages = append(stages, DropDuplicatesBy(opts.UniqueBy...))
	}
	if len(opts.Metadata) > 0 {
		stages = append(stages, AddMetadataColumns(opts.Metadata))
	}
	if opts.SortBy != "" {
		stages = append(stages, SortBy(opts.SortBy))
	}
	if opts.RowID != "" {
		stages = append(stages, AddRowID(opts.RowID))
	}
	return Chain(stages...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// requireColumns returns the indexes of cols in t or a SchemaError naming
// the missing ones.
func requireColumns(op string, t model.Table, cols []string) ([]int, error) {
	idx := make([]int, len(cols))
	var missing []string
	for i, c := range cols {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, model.SchemaError(op, missing)
	}
	return idx, nil
}
