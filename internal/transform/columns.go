package transform

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	xtransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// FoldAccents strips combining marks, so "Código" becomes "Codigo" and
// "Año" becomes "Ano".
func FoldAccents(s string) string {
	t := xtransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := xtransform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeColumnName lowercases name, folds accents, turns whitespace runs
// into underscores and drops anything outside [a-z0-9_].
func NormalizeColumnName(name string) string {
	name = strings.ToLower(FoldAccents(strings.TrimSpace(name)))
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanColumnNames normalizes every column name. A name that cleans to ""
// becomes column_<position>; repeated names get _2, _3 suffixes.
func CleanColumnNames(t model.Table) (model.Table, error) {
	out := t.Clone()
	seen := make(map[string]bool, len(out.Columns))
	for i := range out.Columns {
		name := NormalizeColumnName(out.Columns[i].Name)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if seen[name] {
			base := name
			for n := 2; seen[name]; n++ {
				name = base + "_" + strconv.Itoa(n)
			}
		}
		seen[name] = true
		out.Columns[i].Name = name
	}
	return out, nil
}

// ApplyColumnMapping renames columns found in mapping. Columns without an
// entry keep their name and mapping keys without a column are ignored. A
// rename that collides with another column fails with a SchemaError.
func ApplyColumnMapping(mapping map[string]string) Stage {
	return func(t model.Table) (model.Table, error) {
		out := t.Clone()
		for i, c := range out.Columns {
			if to, ok := mapping[c.Name]; ok && to != "" {
				out.Columns[i].Name = to
			}
		}

		// Names repeated before the mapping are left alone.
		targets := renamedTo(mapping)
		seen := make(map[string]bool, len(out.Columns))
		var dups []string
		for i, c := range out.Columns {
			renamed := c.Name != t.Columns[i].Name || slices.Contains(targets, c.Name)
			if seen[c.Name] && renamed && !slices.Contains(dups, c.Name) {
				dups = append(dups, c.Name)
			}
			seen[c.Name] = true
		}
		if len(dups) > 0 {
			return model.Table{}, model.DuplicateColumnsError("apply column mapping", dups)
		}
		return out, nil
	}
}

func renamedTo(mapping map[string]string) []string {
	out := make([]string, 0, len(mapping))
	for _, to := range mapping {
		out = append(out, to)
	}
	return out
}

// CleanMapping normalizes the keys of a raw-name mapping so it can be
// applied after CleanColumnNames.
func CleanMapping(mapping map[string]string) map[string]string {
	if mapping == nil {
		return nil
	}
	out := make(map[string]string, len(mapping))
	for from, to := range mapping {
		out[NormalizeColumnName(from)] = to
	}
	return out
}
