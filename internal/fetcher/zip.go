package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// ExtractFirstSpreadsheet extracts the first entry, in archive order, whose
// name ends with one of allowed. It returns nil when nothing matches.
func ExtractFirstSpreadsheet(archivePath, destDir string, allowed []string) (*model.LocalArtifact, error) {
	arts, err := extractMatching(archivePath, destDir, allowed, true)
	if err != nil || len(arts) == 0 {
		return nil, err
	}
	return arts[0], nil
}

// ExtractAllSpreadsheets extracts every matching entry in archive order.
func ExtractAllSpreadsheets(archivePath, destDir string, allowed []string) ([]*model.LocalArtifact, error) {
	return extractMatching(archivePath, destDir, allowed, false)
}

// ListSpreadsheets returns the names of matching entries without extracting them.
func ListSpreadsheets(archivePath string, allowed []string) ([]string, error) {
	r, err := openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck

	var names []string
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && matchesExtension(f.Name, allowed) {
			names = append(names, f.Name)
		}
	}
	return names, nil
}

func openArchive(archivePath string) (*zip.ReadCloser, error) {
	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return nil, model.NotFoundError("zip: open archive", eris.Wrap(err, archivePath))
		}
		return nil, model.IOError("zip: stat archive", eris.Wrap(err, archivePath))
	}
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, model.CorruptArchiveError("zip: open archive", eris.Wrap(err, archivePath))
	}
	return r, nil
}

func extractMatching(archivePath, destDir string, allowed []string, firstOnly bool) ([]*model.LocalArtifact, error) {
	r, err := openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, model.IOError("zip: create destination", eris.Wrap(err, destDir))
	}

	var out []*model.LocalArtifact
	created := make(map[string]bool)
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !matchesExtension(f.Name, allowed) {
			continue
		}
		path, dirs, err := extractZIPEntry(f, destDir, created)
		if err != nil {
			return out, err
		}
		out = append(out, &model.LocalArtifact{Path: path, SourceURL: archivePath, Temporary: true, Dirs: dirs})
		if firstOnly {
			break
		}
	}
	return out, nil
}

func matchesExtension(name string, allowed []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range allowed {
		if strings.HasSuffix(lower, model.NormalizeExtension(ext)) {
			return true
		}
	}
	return false
}

// extractZIPEntry writes a single file entry under destDir, keeping its
// relative path. It also returns the directories holding the entry that
// this extraction created, outermost first; created accumulates them across
// entries of one archive.
func extractZIPEntry(f *zip.File, destDir string, created map[string]bool) (string, []string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	rel, err := filepath.Rel(destDir, destPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", nil, model.IOError("zip: extract", eris.Errorf("illegal path %q (zip slip attempt)", f.Name))
	}

	dirs := missingDirs(destDir, filepath.Dir(rel), created)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", nil, model.IOError("zip: create parent directory", err)
	}

	rc, err := f.Open()
	if err != nil {
		removeDirs(dirs)
		return "", nil, model.CorruptArchiveError("zip: open entry "+f.Name, err)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		removeDirs(dirs)
		return "", nil, model.IOError("zip: create file", err)
	}

	src := &readTracker{r: rc}
	_, err = io.Copy(out, src)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		removeDirs(dirs)
		if src.err != nil {
			return "", nil, model.CorruptArchiveError("zip: inflate "+f.Name, src.err)
		}
		return "", nil, model.IOError("zip: write file", err)
	}

	return destPath, dirs, nil
}

// missingDirs lists the directories of relDir under root that do not exist
// yet or are already in created, outermost first, and records them in
// created.
func missingDirs(root, relDir string, created map[string]bool) []string {
	if relDir == "." || relDir == "" {
		return nil
	}
	var dirs []string
	cur := root
	for _, part := range strings.Split(relDir, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		if _, err := os.Stat(cur); created[cur] || os.IsNotExist(err) {
			created[cur] = true
			dirs = append(dirs, cur)
		}
	}
	return dirs
}

func removeDirs(dirs []string) {
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
}
