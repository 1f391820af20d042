package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{
		"fail":      PolicyFail,
		" Replace ": PolicyReplace,
		"APPEND":    PolicyAppend,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("upsert")
	require.Error(t, err)
	_, err = ParsePolicy("")
	require.Error(t, err)
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost/db"))
	assert.True(t, IsPostgres("POSTGRESQL://localhost/db"))
	assert.False(t, IsPostgres("tmp/data.db"))
	assert.False(t, IsPostgres("file:tmp/data.db"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://etl:xxxxx@db:5432/catalogos", redact("postgres://etl:secret@db:5432/catalogos"))
	assert.Equal(t, "tmp/data.db", redact("tmp/data.db"))
}

func TestSave_EmptyTableTouchesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "data.db")
	empty := model.NewTextTable([]string{"a"}, nil)

	_, err := Save(context.Background(), empty, Request{Location: path, Table: "t", Policy: PolicyReplace})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrEmptyInput)
	assert.NoFileExists(t, path)
	assert.NoDirExists(t, filepath.Dir(path))
}

func TestSave_InvalidRequest(t *testing.T) {
	tbl := model.NewTextTable([]string{"a"}, [][]any{{"1"}})
	dir := t.TempDir()

	tests := []struct {
		name string
		tbl  model.Table
		req  Request
	}{
		{"no table name", tbl, Request{Location: filepath.Join(dir, "x.db"), Policy: PolicyFail}},
		{"no location", tbl, Request{Table: "t", Policy: PolicyFail}},
		{"bad policy", tbl, Request{Location: filepath.Join(dir, "x.db"), Table: "t", Policy: "merge"}},
		{"unnamed column", model.NewTextTable([]string{""}, [][]any{{"1"}}), Request{Location: filepath.Join(dir, "x.db"), Table: "t", Policy: PolicyFail}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Save(context.Background(), tt.tbl, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrPersistence)
		})
	}
}
