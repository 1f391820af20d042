package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// DropEmptyRowsAndColumns removes rows whose cells are all empty, then
// columns whose remaining cells are all empty. A table without rows keeps
// its columns.
func DropEmptyRowsAndColumns(t model.Table) (model.Table, error) {
	rows := make([][]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		for i := range t.Columns {
			if !model.IsEmptyCell(cell(row, i)) {
				rows = append(rows, row)
				break
			}
		}
	}

	keep := make([]int, 0, len(t.Columns))
	for i := range t.Columns {
		if len(rows) == 0 {
			keep = append(keep, i)
			continue
		}
		for _, row := range rows {
			if !model.IsEmptyCell(cell(row, i)) {
				keep = append(keep, i)
				break
			}
		}
	}

	return project(t.Columns, rows, keep), nil
}

// project copies the given column positions out of rows.
func project(cols []model.Column, rows [][]any, keep []int) model.Table {
	out := model.Table{
		Columns: make([]model.Column, len(keep)),
		Rows:    make([][]any, len(rows)),
	}
	for j, i := range keep {
		out.Columns[j] = cols[i]
	}
	for r, row := range rows {
		nr := make([]any, len(keep))
		for j, i := range keep {
			nr[j] = cell(row, i)
		}
		out.Rows[r] = nr
	}
	return out
}

// rowKey identifies a row by the type and value of the selected cells.
func rowKey(row []any, idx []int) string {
	var b strings.Builder
	for _, i := range idx {
		v := cell(row, i)
		switch x := v.(type) {
		case nil:
			b.WriteString("\x00")
		case time.Time:
			fmt.Fprintf(&b, "t:%s", x.UTC().Format(time.RFC3339Nano))
		default:
			fmt.Fprintf(&b, "%T:%v", v, v)
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}

func allIndexes(t model.Table) []int {
	idx := make([]int, len(t.Columns))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func dedup(t model.Table, idx []int) model.Table {
	out := model.Table{Columns: append([]model.Column(nil), t.Columns...)}
	seen := make(map[string]bool, len(t.Rows))
	for _, row := range t.Rows {
		k := rowKey(row, idx)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Rows = append(out.Rows, append([]any(nil), row...))
	}
	if out.Rows == nil {
		out.Rows = [][]any{}
	}
	return out
}

// DropDuplicateRows removes rows identical to an earlier row. The first
// occurrence survives and row order is preserved.
func DropDuplicateRows(t model.Table) (model.Table, error) {
	return dedup(t, allIndexes(t)), nil
}

// DropDuplicatesBy keeps the first row for each combination of values in
// columns.
func DropDuplicatesBy(columns ...string) Stage {
	return func(t model.Table) (model.Table, error) {
		idx, err := requireColumns("drop duplicates", t, columns)
		if err != nil {
			return model.Table{}, err
		}
		return dedup(t, idx), nil
	}
}

// DropRowsMissing removes rows with an empty cell in any of columns.
func DropRowsMissing(columns ...string) Stage {
	return func(t model.Table) (model.Table, error) {
		idx, err := requireColumns("drop rows missing", t, columns)
		if err != nil {
			return model.Table{}, err
		}
		out := model.Table{Columns: append([]model.Column(nil), t.Columns...), Rows: [][]any{}}
	rows:
		for _, row := range t.Rows {
			for _, i := range idx {
				if model.IsEmptyCell(cell(row, i)) {
					continue rows
				}
			}
			out.Rows = append(out.Rows, append([]any(nil), row...))
		}
		return out, nil
	}
}

// SortBy orders rows by column, ascending. The sort is stable and empty
// cells go last.
func SortBy(column string) Stage {
	return func(t model.Table) (model.Table, error) {
		idx, err := requireColumns("sort", t, []string{column})
		if err != nil {
			return model.Table{}, err
		}
		out := t.Clone()
		i := idx[0]
		sort.SliceStable(out.Rows, func(a, b int) bool {
			return lessCell(cell(out.Rows[a], i), cell(out.Rows[b], i))
		})
		return out, nil
	}
}

func lessCell(a, b any) bool {
	ae, be := model.IsEmptyCell(a), model.IsEmptyCell(b)
	if ae || be {
		return !ae && be
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return x < y
		}
	case int64:
		switch y := b.(type) {
		case int64:
			return x < y
		case float64:
			return float64(x) < y
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return x < y
		case int64:
			return x < float64(y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// AddRowID inserts a 1-based integer column named name at the front. A table
// that already has the column is returned unchanged.
func AddRowID(name string) Stage {
	return func(t model.Table) (model.Table, error) {
		if t.HasColumn(name) {
			return t.Clone(), nil
		}
		out := model.Table{
			Columns: append([]model.Column{{Name: name, Type: model.TypeInteger}}, t.Columns...),
			Rows:    make([][]any, len(t.Rows)),
		}
		for r, row := range t.Rows {
			out.Rows[r] = append([]any{int64(r + 1)}, row...)
		}
		return out, nil
	}
}
