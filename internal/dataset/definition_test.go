package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/m4ck-y/nom024-Airflow/internal/db"
	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

func writeDefinitions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipelines.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNationalities_Transform(t *testing.T) {
	now := time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)
	raw := model.NewTextTable(
		[]string{"CODIGO PAIS", "PAIS", "CLAVE NACIONALIDAD"},
		[][]any{
			{"36", "ALEMANIA", "ALE"},
			{nil, nil, nil},
			{"4", "afganistán ", "AFG"},
			{"4", "Duplicado", "XXX"},
		},
	)

	out, err := Nationalities().Transform(now)(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"codigo_pais", "pais", "clave_nacionalidad", ProcessedAtColumn, SourceColumn}, out.ColumnNames())
	assert.Equal(t, [][]any{
		{"004", "Afganistán", "AFG", now, NationalitiesURL},
		{"036", "Alemania", "ALE", now, NationalitiesURL},
	}, out.Rows)
	assert.Equal(t, model.TypeDate, out.Columns[3].Type)
}

func TestNationalities_WarnsOnMalformedCodes(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	raw := model.NewTextTable(
		[]string{"CODIGO PAIS", "PAIS"},
		[][]any{{"36", "Alemania"}, {"1234", "Atlantida"}, {"ABC", "Narnia"}},
	)

	out, err := Nationalities().Transform(time.Now())(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len(), "rows are kept")

	entries := logs.FilterMessage("values do not match expected format").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "codigo_pais", fields["column"])
	assert.EqualValues(t, 2, fields["count"])
}

func TestNationalities_MissingRequired(t *testing.T) {
	raw := model.NewTextTable([]string{"PAIS"}, [][]any{{"Mexico"}})

	_, err := Nationalities().Transform(time.Now())(raw)
	require.Error(t, err)
	assert.Equal(t, model.KindSchema, model.KindOf(err))
}

func TestDefinition_Params(t *testing.T) {
	d := Nationalities()
	p := d.Params("downloads", "tmp/data.db", time.Now())

	assert.Equal(t, NationalitiesURL, p.PageURL)
	assert.Equal(t, "downloads", p.DownloadDir)
	assert.Equal(t, "nacionalidades", p.Table)
	assert.Equal(t, "tmp/nacionalidades.db", p.Store)
	assert.Equal(t, db.PolicyReplace, p.Policy)
	assert.NotNil(t, p.Transform)

	d.Store = ""
	assert.Equal(t, "tmp/data.db", d.Params("downloads", "tmp/data.db", time.Now()).Store)
}

func TestDefinition_Validate(t *testing.T) {
	valid := func() Definition {
		return Definition{Name: "x", PageURL: "https://example.gob.mx/datos.html", Table: "x"}
	}

	d := valid()
	require.NoError(t, d.Validate())
	assert.Equal(t, db.PolicyReplace, d.Policy)
	assert.Equal(t, Always, d.Cadence)

	tests := []struct {
		name   string
		mutate func(*Definition)
		errMsg string
	}{
		{"no name", func(d *Definition) { d.Name = " " }, "without name"},
		{"bad url", func(d *Definition) { d.PageURL = "not a url" }, "invalid page_url"},
		{"no table", func(d *Definition) { d.Table = "" }, "table is required"},
		{"bad policy", func(d *Definition) { d.Policy = "merge" }, "unknown policy"},
		{"bad cadence", func(d *Definition) { d.Cadence = "hourly" }, "unknown cadence"},
		{"bad type", func(d *Definition) { d.Types = map[string]string{"a": "blob"} }, "unknown type"},
		{"bad pad width", func(d *Definition) { d.PadLeft = map[string]int{"a": 0} }, "must be positive"},
		{"bad pattern", func(d *Definition) { d.Patterns = map[string]string{"a": "[0-9"} }, "pattern for a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(&d)
			assert.ErrorContains(t, d.Validate(), tt.errMsg)
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	path := writeDefinitions(t, `
pipelines:
  - name: municipios
    page_url: http://www.dgis.salud.gob.mx/contenidos/intercambio/municipios_gobmx.html
    table: municipios
    store: tmp/catalogos.db
    policy: Append
    cadence: monthly
    sheet:
      name: Hoja1
    column_mapping:
      "Clave Municipio": cve_mun
    required: [cve_mun]
    pad_left:
      cve_mun: 3
    types:
      poblacion: integer
    sort_by: cve_mun
    row_id: id
  - name: localidades
    page_url: http://www.dgis.salud.gob.mx/contenidos/intercambio/localidades_gobmx.html
    table: localidades
`)

	defs, err := LoadDefinitions(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	m := defs[0]
	assert.Equal(t, "municipios", m.Name)
	assert.Equal(t, db.PolicyAppend, m.Policy)
	assert.Equal(t, Monthly, m.Cadence)
	assert.Equal(t, "Hoja1", m.Sheet.Name)
	assert.Equal(t, map[string]string{"Clave Municipio": "cve_mun"}, m.ColumnMapping)
	assert.Equal(t, map[string]int{"cve_mun": 3}, m.PadLeft)
	assert.Equal(t, "id", m.RowID)

	l := defs[1]
	assert.Equal(t, db.PolicyReplace, l.Policy)
	assert.Equal(t, Always, l.Cadence)
}

func TestLoadDefinitions_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDefinitions(filepath.Join(t.TempDir(), "none.yaml"))
		assert.ErrorContains(t, err, "read definitions")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadDefinitions(writeDefinitions(t, "pipelines: [\n"))
		assert.ErrorContains(t, err, "parse definitions")
	})

	t.Run("invalid entry", func(t *testing.T) {
		_, err := LoadDefinitions(writeDefinitions(t, `
pipelines:
  - name: x
    page_url: ftp//broken
    table: x
`))
		assert.ErrorContains(t, err, "entry 0")
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := LoadDefinitions(writeDefinitions(t, `
pipelines:
  - {name: x, page_url: "https://example.gob.mx/a.html", table: a}
  - {name: x, page_url: "https://example.gob.mx/b.html", table: b}
`))
		assert.ErrorContains(t, err, `duplicate name "x"`)
	})
}
