package transform

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// nullLike holds lowercase spellings that spreadsheet exports use for
// missing values.
var nullLike = map[string]bool{
	"nan":  true,
	"none": true,
}

// textColumns resolves the columns a text stage applies to. No names means
// every TypeText column.
func textColumns(op string, t model.Table, columns []string) ([]int, error) {
	if len(columns) > 0 {
		return requireColumns(op, t, columns)
	}
	var idx []int
	for i, c := range t.Columns {
		if c.Type == model.TypeText || c.Type == "" {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// StandardizeText trims string cells and turns nil and null-like strings
// ("nan", "None", any case) into "".
func StandardizeText(columns ...string) Stage {
	return func(t model.Table) (model.Table, error) {
		idx, err := textColumns("standardize text", t, columns)
		if err != nil {
			return model.Table{}, err
		}
		out := t.Clone()
		for _, row := range out.Rows {
			for _, i := range idx {
				if i >= len(row) {
					continue
				}
				switch v := row[i].(type) {
				case nil:
					row[i] = ""
				case string:
					v = strings.TrimSpace(v)
					if nullLike[strings.ToLower(v)] {
						v = ""
					}
					row[i] = v
				}
			}
		}
		return out, nil
	}
}

// TitleCase capitalizes each word of string cells using Spanish casing
// rules.
func TitleCase(columns ...string) Stage {
	return func(t model.Table) (model.Table, error) {
		idx, err := requireColumns("title case", t, columns)
		if err != nil {
			return model.Table{}, err
		}
		caser := cases.Title(language.Spanish)
		out := t.Clone()
		for _, row := range out.Rows {
			for _, i := range idx {
				if s, ok := cell(row, i).(string); ok {
					row[i] = caser.String(s)
				}
			}
		}
		return out, nil
	}
}

// PadLeft left-pads non-empty cells of column with pad up to width runes.
// Integer cells are formatted first, so the column becomes text.
func PadLeft(column string, width int, pad rune) Stage {
	return func(t model.Table) (model.Table, error) {
		idx, err := requireColumns("pad left", t, []string{column})
		if err != nil {
			return model.Table{}, err
		}
		i := idx[0]
		out := t.Clone()
		out.Columns[i].Type = model.TypeText
		for _, row := range out.Rows {
			var s string
			switch v := cell(row, i).(type) {
			case string:
				s = strings.TrimSpace(v)
			case int64:
				s = strconv.FormatInt(v, 10)
			case float64:
				s = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				continue
			}
			if s == "" {
				continue
			}
			if n := utf8.RuneCountInString(s); n < width {
				s = strings.Repeat(string(pad), width-n) + s
			}
			row[i] = s
		}
		return out, nil
	}
}
