// Package urlutil resolves and inspects links found on scraped pages.
package urlutil

import (
	"net/url"
	"path"
	"strings"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// Resolve combines base with a possibly relative reference. It never fails:
// when either side cannot be parsed it falls back to a best-effort string.
func Resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	r, err := url.Parse(ref)
	if err != nil {
		return fallbackJoin(base, ref)
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return fallbackJoin(base, ref)
	}
	return b.ResolveReference(r).String()
}

func fallbackJoin(base, ref string) string {
	if strings.Contains(ref, "://") {
		return ref
	}
	if strings.HasSuffix(base, "/") || strings.HasPrefix(ref, "/") {
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/")
	}
	return base + "/" + ref
}

// IsValid reports whether raw has both a scheme and a host.
func IsValid(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// ExtensionOf returns the lowercase extension (with dot) of the last path
// segment of raw. Query strings and fragments are ignored.
func ExtensionOf(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return "", false
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || ext == "." {
		return "", false
	}
	return ext, true
}

// HasExtension reports whether raw ends in one of exts, case-insensitively.
func HasExtension(raw string, exts []string) bool {
	ext, ok := ExtensionOf(raw)
	if !ok {
		return false
	}
	for _, e := range exts {
		if model.NormalizeExtension(e) == ext {
			return true
		}
	}
	return false
}

// FileName returns the unescaped last path segment of raw, or "".
func FileName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
