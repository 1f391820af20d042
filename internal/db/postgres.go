package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// Pool is the subset of *pgxpool.Pool used by PostgresSink. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresSink writes tables into PostgreSQL with COPY inside one
// transaction. Table names may be schema-qualified ("catalogos.paises").
type PostgresSink struct {
	pool Pool
}

// NewPostgresSink connects to dsn.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, model.PersistenceError("connect postgres", eris.Wrap(err, "pgxpool: new"))
	}
	return &PostgresSink{pool: pool}, nil
}

// NewPostgresSinkFromPool wraps an existing pool.
func NewPostgresSinkFromPool(pool Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Close closes the pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

const pgTableExistsSQL = `SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema = coalesce(nullif($1, ''), current_schema()) AND table_name = $2
)`

// Write implements Sink.
func (s *PostgresSink) Write(ctx context.Context, t model.Table, table string, policy Policy) (int64, error) {
	op := "write " + table
	schema, name := splitTable(table)
	ident := tableIdent(schema, name)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, model.PersistenceError(op, eris.Wrap(err, "postgres: begin tx"))
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx) //nolint:errcheck
		}
	}()

	var exists bool
	if err := tx.QueryRow(ctx, pgTableExistsSQL, schema, name).Scan(&exists); err != nil {
		return 0, model.PersistenceError(op, eris.Wrap(err, "postgres: check table"))
	}

	switch policy {
	case PolicyFail:
		if exists {
			return 0, model.PersistenceError(op, eris.Errorf("table %q already exists", table))
		}
	case PolicyReplace:
		if exists {
			if _, err := tx.Exec(ctx, "DROP TABLE "+ident.Sanitize()); err != nil {
				return 0, model.PersistenceError(op, eris.Wrap(err, "postgres: drop table"))
			}
			exists = false
		}
	case PolicyAppend:
	default:
		return 0, model.PersistenceError(op, eris.Errorf("unknown policy %q", policy))
	}

	if !exists {
		if _, err := tx.Exec(ctx, pgCreateTable(ident, t.Columns)); err != nil {
			return 0, model.PersistenceError(op, eris.Wrap(err, "postgres: create table"))
		}
	}

	n, err := tx.CopyFrom(ctx, ident, t.ColumnNames(), pgx.CopyFromRows(rowsFor(t)))
	if err != nil {
		return 0, model.PersistenceError(op, eris.Wrapf(err, "postgres: COPY INTO %s", table))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, model.PersistenceError(op, eris.Wrap(err, "postgres: commit"))
	}
	committed = true
	return n, nil
}

// splitTable handles schema-qualified names like "catalogos.paises".
func splitTable(table string) (schema, name string) {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", table
}

func tableIdent(schema, name string) pgx.Identifier {
	if schema == "" {
		return pgx.Identifier{name}
	}
	return pgx.Identifier{schema, name}
}

func pgType(t model.ColumnType) string {
	switch t {
	case model.TypeInteger:
		return "BIGINT"
	case model.TypeNumeric:
		return "DOUBLE PRECISION"
	case model.TypeDate:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func pgCreateTable(ident pgx.Identifier, cols []model.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + pgType(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ident.Sanitize(), strings.Join(defs, ", "))
}
