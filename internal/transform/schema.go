package transform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// ValidateRequiredColumns fails with a SchemaError listing every required
// column the table lacks.
func ValidateRequiredColumns(required ...string) Stage {
	return func(t model.Table) (model.Table, error) {
		if _, err := requireColumns("validate", t, required); err != nil {
			return model.Table{}, err
		}
		return t.Clone(), nil
	}
}

// maxLoggedMismatches caps the sample values WarnMismatches logs.
const maxLoggedMismatches = 5

// WarnMismatches logs a warning when non-empty cells of column do not match
// pattern. The table passes through unchanged.
func WarnMismatches(column string, pattern *regexp.Regexp) Stage {
	return func(t model.Table) (model.Table, error) {
		idx, err := requireColumns("check pattern", t, []string{column})
		if err != nil {
			return model.Table{}, err
		}
		var (
			count  int
			sample []string
		)
		for _, row := range t.Rows {
			v := cell(row, idx[0])
			if model.IsEmptyCell(v) {
				continue
			}
			s := fmt.Sprint(v)
			if pattern.MatchString(s) {
				continue
			}
			count++
			if len(sample) < maxLoggedMismatches {
				sample = append(sample, s)
			}
		}
		if count > 0 {
			zap.L().Warn("values do not match expected format",
				zap.String("component", "transform"),
				zap.String("column", column),
				zap.String("pattern", pattern.String()),
				zap.Int("count", count),
				zap.Strings("sample", sample),
			)
		}
		return t.Clone(), nil
	}
}

// AddMetadataColumns appends one constant column per key, in sorted key
// order. Columns that already exist are left as they are.
func AddMetadataColumns(values map[string]any) Stage {
	return func(t model.Table) (model.Table, error) {
		out := t.Clone()
		for _, name := range sortedKeys(values) {
			if out.HasColumn(name) {
				continue
			}
			v, typ := metadataValue(values[name])
			out.Columns = append(out.Columns, model.Column{Name: name, Type: typ})
			for r := range out.Rows {
				for len(out.Rows[r]) < len(out.Columns)-1 {
					out.Rows[r] = append(out.Rows[r], nil)
				}
				out.Rows[r] = append(out.Rows[r], v)
			}
		}
		return out, nil
	}
}

func metadataValue(v any) (any, model.ColumnType) {
	switch x := v.(type) {
	case nil:
		return nil, model.TypeText
	case string:
		return x, model.TypeText
	case time.Time:
		return x, model.TypeDate
	case int:
		return int64(x), model.TypeInteger
	case int32:
		return int64(x), model.TypeInteger
	case int64:
		return x, model.TypeInteger
	case float32:
		return float64(x), model.TypeNumeric
	case float64:
		return x, model.TypeNumeric
	default:
		return fmt.Sprint(x), model.TypeText
	}
}

// dateLayouts are tried in order when coercing text to dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
}

// CoerceTypes converts the named columns to the given types. Cells that do
// not convert become nil.
func CoerceTypes(types map[string]model.ColumnType) Stage {
	return func(t model.Table) (model.Table, error) {
		cols := sortedKeys(types)
		idx, err := requireColumns("coerce types", t, cols)
		if err != nil {
			return model.Table{}, err
		}
		out := t.Clone()
		for k, name := range cols {
			i, typ := idx[k], types[name]
			out.Columns[i].Type = typ
			for _, row := range out.Rows {
				if i < len(row) {
					row[i] = coerce(row[i], typ)
				}
			}
		}
		return out, nil
	}
}

func coerce(v any, typ model.ColumnType) any {
	if model.IsEmptyCell(v) {
		return nil
	}
	switch typ {
	case model.TypeInteger:
		return toInt(v)
	case model.TypeNumeric:
		return toFloat(v)
	case model.TypeDate:
		return toDate(v)
	default:
		return toText(v)
	}
}

func toInt(v any) any {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x)
		}
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f)
		}
	}
	return nil
}

func toFloat(v any) any {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
			return f
		}
	}
	return nil
}

func toDate(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d
			}
		}
	}
	return nil
}

func toText(v any) any {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
