// Package dataset declares the ingestion pipelines the CLI knows about and
// runs them on their cadence.
package dataset

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/m4ck-y/nom024-Airflow/internal/db"
	"github.com/m4ck-y/nom024-Airflow/internal/fetcher"
	"github.com/m4ck-y/nom024-Airflow/internal/model"
	"github.com/m4ck-y/nom024-Airflow/internal/pipeline"
	"github.com/m4ck-y/nom024-Airflow/internal/transform"
	"github.com/m4ck-y/nom024-Airflow/internal/urlutil"
)

// Metadata columns appended to every table a Definition produces.
const (
	ProcessedAtColumn = "fecha_procesamiento"
	SourceColumn      = "fuente"
)

// Definition describes one page-to-table pipeline.
type Definition struct {
	Name    string    `yaml:"name"`
	PageURL string    `yaml:"page_url"`
	Table   string    `yaml:"table"`
	Store   string    `yaml:"store"`
	Policy  db.Policy `yaml:"policy"`
	Cadence Cadence   `yaml:"cadence"`

	Sheet fetcher.SheetSelector `yaml:"sheet"`

	// ColumnMapping is keyed by spreadsheet header; keys are normalized
	// the same way column names are.
	ColumnMapping map[string]string `yaml:"column_mapping"`
	Required      []string          `yaml:"required"`
	TextColumns   []string          `yaml:"text_columns"`
	TitleCase     []string          `yaml:"title_case"`
	PadLeft       map[string]int    `yaml:"pad_left"`
	DropMissing   []string          `yaml:"drop_missing"`
	UniqueBy      []string          `yaml:"unique_by"`
	SortBy        string            `yaml:"sort_by"`
	Types         map[string]string `yaml:"types"`
	// Patterns maps a column to a regular expression its values should
	// match; mismatches are logged, not dropped.
	Patterns map[string]string `yaml:"patterns"`
	RowID    string            `yaml:"row_id"`
}

// Validate fills defaults and checks every field that would otherwise fail
// deep inside a run.
func (d *Definition) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return eris.New("dataset: definition without name")
	}
	if !urlutil.IsValid(d.PageURL) {
		return eris.Errorf("dataset: %s: invalid page_url %q", d.Name, d.PageURL)
	}
	if strings.TrimSpace(d.Table) == "" {
		return eris.Errorf("dataset: %s: table is required", d.Name)
	}

	if d.Policy == "" {
		d.Policy = db.PolicyReplace
	}
	p, err := db.ParsePolicy(string(d.Policy))
	if err != nil {
		return eris.Wrapf(err, "dataset: %s", d.Name)
	}
	d.Policy = p

	c, err := ParseCadence(string(d.Cadence))
	if err != nil {
		return eris.Wrapf(err, "dataset: %s", d.Name)
	}
	d.Cadence = c

	for col, typ := range d.Types {
		if _, ok := model.ParseColumnType(typ); !ok {
			return eris.Errorf("dataset: %s: column %s has unknown type %q", d.Name, col, typ)
		}
	}
	for col, expr := range d.Patterns {
		if _, err := regexp.Compile(expr); err != nil {
			return eris.Wrapf(err, "dataset: %s: pattern for %s", d.Name, col)
		}
	}
	for col, width := range d.PadLeft {
		if width <= 0 {
			return eris.Errorf("dataset: %s: pad_left width for %s must be positive", d.Name, col)
		}
	}
	return nil
}

// Transform builds the cleaning chain for d. Rows are stamped with now and
// the page URL.
func (d Definition) Transform(now time.Time) transform.Stage {
	var types map[string]model.ColumnType
	if len(d.Types) > 0 {
		types = make(map[string]model.ColumnType, len(d.Types))
		for col, typ := range d.Types {
			ct, _ := model.ParseColumnType(typ)
			types[col] = ct
		}
	}

	var patterns map[string]*regexp.Regexp
	if len(d.Patterns) > 0 {
		patterns = make(map[string]*regexp.Regexp, len(d.Patterns))
		for col, expr := range d.Patterns {
			patterns[col] = regexp.MustCompile(expr)
		}
	}

	return transform.Standard(transform.Options{
		ColumnMapping: transform.CleanMapping(d.ColumnMapping),
		TextColumns:   d.TextColumns,
		Required:      d.Required,
		Types:         types,
		TitleCase:     d.TitleCase,
		ZeroPad:       d.PadLeft,
		DropMissing:   d.DropMissing,
		Patterns:      patterns,
		UniqueBy:      d.UniqueBy,
		Metadata: map[string]any{
			ProcessedAtColumn: now,
			SourceColumn:      d.PageURL,
		},
		SortBy: d.SortBy,
		RowID:  d.RowID,
	})
}

// Params converts d into orchestrator parameters.
func (d Definition) Params(downloadDir, defaultStore string, now time.Time) pipeline.Params {
	store := d.Store
	if store == "" {
		store = defaultStore
	}
	return pipeline.Params{
		PageURL:     d.PageURL,
		DownloadDir: downloadDir,
		Transform:   d.Transform(now),
		Table:       d.Table,
		Store:       store,
		Policy:      d.Policy,
		Sheet:       d.Sheet,
	}
}

type definitionFile struct {
	Pipelines []Definition `yaml:"pipelines"`
}

// LoadDefinitions reads a YAML file holding a top-level pipelines list and
// validates every entry. Names must be unique.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read definitions %s", path)
	}

	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse definitions %s", path)
	}

	seen := make(map[string]bool, len(file.Pipelines))
	for i := range file.Pipelines {
		d := &file.Pipelines[i]
		if err := d.Validate(); err != nil {
			return nil, eris.Wrapf(err, "dataset: definitions %s entry %d", path, i)
		}
		if seen[d.Name] {
			return nil, eris.Errorf("dataset: definitions %s: duplicate name %q", path, d.Name)
		}
		seen[d.Name] = true
	}
	return file.Pipelines, nil
}
