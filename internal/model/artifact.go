package model

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ArtifactClass is the inferred kind of a discovered link.
type ArtifactClass string

const (
	ClassArchive     ArtifactClass = "archive"
	ClassSpreadsheet ArtifactClass = "spreadsheet"
	ClassOther       ArtifactClass = "other"
)

// LinkCandidate is a resolved link that plausibly points at a data file.
type LinkCandidate struct {
	URL       string        `json:"url"`
	Extension string        `json:"extension"`
	Class     ArtifactClass `json:"class"`
}

// ExtensionSet groups the recognized archive and spreadsheet extensions.
// Extensions are compared case-insensitively; a missing leading dot is added.
type ExtensionSet struct {
	Archive     []string `yaml:"archive" mapstructure:"archive"`
	Spreadsheet []string `yaml:"spreadsheet" mapstructure:"spreadsheet"`
}

// DefaultExtensions returns the extension set used by the nationalities feed.
func DefaultExtensions() ExtensionSet {
	return ExtensionSet{
		Archive:     []string{".zip"},
		Spreadsheet: []string{".xls", ".xlsx"},
	}
}

// NormalizeExtension lowercases ext and ensures it starts with a dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// All returns archive and spreadsheet extensions combined, normalized.
func (s ExtensionSet) All() []string {
	out := make([]string, 0, len(s.Archive)+len(s.Spreadsheet))
	for _, e := range s.Archive {
		out = append(out, NormalizeExtension(e))
	}
	for _, e := range s.Spreadsheet {
		out = append(out, NormalizeExtension(e))
	}
	return out
}

// Classify returns the class of an extension. Archive wins if an extension
// appears in both lists.
func (s ExtensionSet) Classify(ext string) ArtifactClass {
	ext = NormalizeExtension(ext)
	for _, e := range s.Archive {
		if NormalizeExtension(e) == ext {
			return ClassArchive
		}
	}
	for _, e := range s.Spreadsheet {
		if NormalizeExtension(e) == ext {
			return ClassSpreadsheet
		}
	}
	return ClassOther
}

// Contains reports whether ext is recognized.
func (s ExtensionSet) Contains(ext string) bool {
	return s.Classify(ext) != ClassOther
}

// LocalArtifact is a file on local storage obtained while processing a page.
type LocalArtifact struct {
	Path      string `json:"path"`
	SourceURL string `json:"source_url"`
	// Temporary artifacts are deleted by Release.
	Temporary bool `json:"temporary"`
	// Dirs were created to hold Path, outermost first. Release removes the
	// ones left empty.
	Dirs []string `json:"dirs,omitempty"`

	released bool
}

// Release deletes a temporary artifact. It runs at most once; later calls
// and missing files are not errors.
func (a *LocalArtifact) Release() error {
	if a == nil || a.released {
		return nil
	}
	a.released = true
	if !a.Temporary {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "artifact: remove %s", a.Path)
	}
	for i := len(a.Dirs) - 1; i >= 0; i-- {
		// Fails on directories another artifact still uses.
		_ = os.Remove(a.Dirs[i])
	}
	return nil
}

// Released reports whether Release has been called.
func (a *LocalArtifact) Released() bool {
	return a != nil && a.released
}
