// Package db persists cleaned tables into SQLite files or PostgreSQL.
package db

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// Policy decides what happens when the target table already exists.
type Policy string

const (
	// PolicyFail refuses to write into an existing table.
	PolicyFail Policy = "fail"
	// PolicyReplace drops the existing table and recreates it.
	PolicyReplace Policy = "replace"
	// PolicyAppend inserts after the existing rows, creating the table if
	// needed.
	PolicyAppend Policy = "append"
)

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", eris.Errorf("db: unknown policy %q (want fail, replace or append)", s)
	}
	return p, nil
}

// Valid reports whether p is one of the known policies.
func (p Policy) Valid() bool {
	switch p {
	case PolicyFail, PolicyReplace, PolicyAppend:
		return true
	}
	return false
}

// Request names where a table is written.
type Request struct {
	// Location is a SQLite file path or a postgres:// connection string.
	Location string
	Table    string
	Policy   Policy
}

// Sink writes tables into one store.
type Sink interface {
	// Write stores every row of t in table under policy inside a single
	// transaction and returns the number of rows written.
	Write(ctx context.Context, t model.Table, table string, policy Policy) (int64, error)
	Close() error
}

// IsPostgres reports whether location is a PostgreSQL connection URL.
func IsPostgres(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "postgres://") || strings.HasPrefix(l, "postgresql://")
}

// Open returns the sink serving location.
func Open(ctx context.Context, location string) (Sink, error) {
	if IsPostgres(location) {
		return NewPostgresSink(ctx, location)
	}
	return OpenSQLite(location)
}

// Save writes t as described by req. A table without rows is rejected with
// an EmptyInputError before the store is opened.
func Save(ctx context.Context, t model.Table, req Request) (int64, error) {
	if t.Len() == 0 {
		return 0, model.EmptyInputError("save " + req.Table)
	}
	if err := checkRequest(t, req); err != nil {
		return 0, err
	}

	start := time.Now()
	sink, err := Open(ctx, req.Location)
	if err != nil {
		return 0, err
	}
	defer sink.Close() //nolint:errcheck

	n, err := sink.Write(ctx, t, req.Table, req.Policy)
	if err != nil {
		return 0, err
	}

	zap.L().Info("table saved",
		zap.String("store", redact(req.Location)),
		zap.String("table", req.Table),
		zap.String("policy", string(req.Policy)),
		zap.Int64("rows", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}

func checkRequest(t model.Table, req Request) error {
	op := "save " + req.Table
	if strings.TrimSpace(req.Location) == "" {
		return model.PersistenceError(op, eris.New("store location is empty"))
	}
	if strings.TrimSpace(req.Table) == "" {
		return model.PersistenceError(op, eris.New("table name is empty"))
	}
	if !req.Policy.Valid() {
		return model.PersistenceError(op, eris.Errorf("unknown policy %q", req.Policy))
	}
	if len(t.Columns) == 0 {
		return model.PersistenceError(op, eris.New("table has no columns"))
	}
	for i, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return model.PersistenceError(op, eris.Errorf("column %d has no name", i+1))
		}
	}
	return nil
}

// redact hides the password of a connection URL for logging.
func redact(location string) string {
	if !IsPostgres(location) {
		return location
	}
	u, err := url.Parse(location)
	if err != nil {
		return "postgres://"
	}
	return u.Redacted()
}

// rowsFor pads every row to the column count.
func rowsFor(t model.Table) [][]any {
	out := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]any, len(t.Columns))
		copy(r, row)
		out[i] = r
	}
	return out
}
