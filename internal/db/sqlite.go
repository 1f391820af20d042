package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// SQLiteSink writes tables into a SQLite database file.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path. The parent
// directory is created when missing.
func OpenSQLite(path string) (*SQLiteSink, error) {
	op := "open sqlite " + path
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, model.IOError(op, eris.Wrap(err, "create parent directory"))
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.PersistenceError(op, eris.Wrap(err, "sqlite: open"))
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, model.PersistenceError(op, eris.Wrapf(err, "sqlite: exec %s", pragma))
		}
	}
	return &SQLiteSink{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, t model.Table, table string, policy Policy) (int64, error) {
	op := "write " + table
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, model.PersistenceError(op, eris.Wrap(err, "sqlite: begin tx"))
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	exists, err := sqliteTableExists(ctx, tx, table)
	if err != nil {
		return 0, model.PersistenceError(op, err)
	}

	switch policy {
	case PolicyFail:
		if exists {
			return 0, model.PersistenceError(op, eris.Errorf("table %q already exists", table))
		}
	case PolicyReplace:
		if exists {
			if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoteSQLite(table)); err != nil {
				return 0, model.PersistenceError(op, eris.Wrap(err, "sqlite: drop table"))
			}
			exists = false
		}
	case PolicyAppend:
	default:
		return 0, model.PersistenceError(op, eris.Errorf("unknown policy %q", policy))
	}

	if !exists {
		if _, err := tx.ExecContext(ctx, sqliteCreateTable(table, t.Columns)); err != nil {
			return 0, model.PersistenceError(op, eris.Wrap(err, "sqlite: create table"))
		}
	}

	stmt, err := tx.PrepareContext(ctx, sqliteInsert(table, t.Columns))
	if err != nil {
		return 0, model.PersistenceError(op, eris.Wrap(err, "sqlite: prepare insert"))
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range rowsFor(t) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, model.PersistenceError(op, eris.Wrapf(err, "sqlite: insert row %d", n+1))
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, model.PersistenceError(op, eris.Wrap(err, "sqlite: commit"))
	}
	committed = true
	return n, nil
}

func sqliteTableExists(ctx context.Context, tx *sql.Tx, table string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&count)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: check table")
	}
	return count > 0, nil
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteType(t model.ColumnType) string {
	switch t {
	case model.TypeInteger:
		return "INTEGER"
	case model.TypeNumeric:
		return "REAL"
	case model.TypeDate:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func sqliteCreateTable(table string, cols []model.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteSQLite(c.Name) + " " + sqliteType(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteSQLite(table), strings.Join(defs, ", "))
}

func sqliteInsert(table string, cols []model.Column) string {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteSQLite(c.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteSQLite(table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

// ReadBack loads a whole table from a SQLite file. Column types come from
// the declared SQLite types.
func ReadBack(ctx context.Context, path, table string) (model.Table, error) {
	op := "read back " + table
	if _, err := os.Stat(path); err != nil {
		return model.Table{}, model.NotFoundError(op, eris.Wrap(err, path))
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return model.Table{}, model.PersistenceError(op, eris.Wrap(err, "sqlite: open"))
	}
	defer db.Close() //nolint:errcheck

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteSQLite(table))
	if err != nil {
		return model.Table{}, model.PersistenceError(op, eris.Wrap(err, "sqlite: select"))
	}
	defer rows.Close() //nolint:errcheck

	types, err := rows.ColumnTypes()
	if err != nil {
		return model.Table{}, model.PersistenceError(op, eris.Wrap(err, "sqlite: column types"))
	}
	out := model.Table{Columns: make([]model.Column, len(types)), Rows: [][]any{}}
	for i, ct := range types {
		out.Columns[i] = model.Column{Name: ct.Name(), Type: columnTypeOf(ct.DatabaseTypeName())}
	}

	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.Table{}, model.PersistenceError(op, eris.Wrap(err, "sqlite: scan"))
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return model.Table{}, model.PersistenceError(op, eris.Wrap(err, "sqlite: iterate"))
	}
	return out, nil
}

func columnTypeOf(declared string) model.ColumnType {
	switch strings.ToUpper(declared) {
	case "INTEGER", "INT", "BIGINT":
		return model.TypeInteger
	case "REAL", "DOUBLE", "FLOAT", "NUMERIC":
		return model.TypeNumeric
	case "TIMESTAMP", "DATETIME", "DATE":
		return model.TypeDate
	default:
		return model.TypeText
	}
}
