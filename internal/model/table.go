package model

import (
	"strings"
	"time"
)

// ColumnType is the logical type of a table column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeInteger ColumnType = "integer"
	TypeNumeric ColumnType = "numeric"
	TypeDate    ColumnType = "date"
)

// ParseColumnType converts a definition value like "numeric" into a ColumnType.
func ParseColumnType(s string) (ColumnType, bool) {
	switch ColumnType(s) {
	case TypeText, TypeInteger, TypeNumeric, TypeDate:
		return ColumnType(s), true
	default:
		return "", false
	}
}

// Column is a named, typed column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is an ordered set of columns and rows. Each row holds one cell per
// column; a cell is nil, string, int64, float64 or time.Time.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewTextTable builds a table whose columns are all TypeText.
func NewTextTable(names []string, rows [][]any) Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: TypeText}
	}
	return Table{Columns: cols, Rows: rows}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has a column with the given name.
func (t Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Value returns the cell at row r for the named column, or nil when the
// column or row does not exist.
func (t Table) Value(r int, column string) any {
	i := t.ColumnIndex(column)
	if i < 0 || r < 0 || r >= len(t.Rows) || i >= len(t.Rows[r]) {
		return nil
	}
	return t.Rows[r][i]
}

// Clone returns a deep copy of the column list and row slices. Cell values
// are immutable scalars and are shared.
func (t Table) Clone() Table {
	out := Table{
		Columns: make([]Column, len(t.Columns)),
		Rows:    make([][]any, len(t.Rows)),
	}
	copy(out.Columns, t.Columns)
	for i, row := range t.Rows {
		r := make([]any, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// IsEmptyCell reports whether a cell counts as empty: nil, or a string that
// is blank after trimming.
func IsEmptyCell(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case time.Time:
		return x.IsZero()
	default:
		return false
	}
}
