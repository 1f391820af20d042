package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

type zipEntry struct {
	name    string
	content string
}

// createTestZIP writes entries in the given order so archive order is
// deterministic.
func createTestZIP(t *testing.T, entries ...zipEntry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

var spreadsheetExts = []string{".xls", ".xlsx"}

func TestExtractFirstSpreadsheet(t *testing.T) {
	archive := createTestZIP(t,
		zipEntry{"readme.txt", "notes"},
		zipEntry{"data.xlsx", "sheet bytes"},
	)
	dest := t.TempDir()

	art, err := ExtractFirstSpreadsheet(archive, dest, spreadsheetExts)
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Equal(t, filepath.Join(dest, "data.xlsx"), art.Path)
	assert.True(t, art.Temporary)

	data, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	assert.Equal(t, "sheet bytes", string(data))
	assert.NoFileExists(t, filepath.Join(dest, "readme.txt"))
}

func TestExtractFirstSpreadsheet_ArchiveOrder(t *testing.T) {
	archive := createTestZIP(t,
		zipEntry{"second.XLS", "b"},
		zipEntry{"first.xlsx", "a"},
	)
	dest := t.TempDir()

	art, err := ExtractFirstSpreadsheet(archive, dest, spreadsheetExts)
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Equal(t, "second.XLS", filepath.Base(art.Path))
	assert.NoFileExists(t, filepath.Join(dest, "first.xlsx"))
}

func TestExtractFirstSpreadsheet_NoMatch(t *testing.T) {
	archive := createTestZIP(t, zipEntry{"readme.txt", "notes"})

	art, err := ExtractFirstSpreadsheet(archive, t.TempDir(), spreadsheetExts)
	require.NoError(t, err)
	assert.Nil(t, art)
}

func TestExtractAllSpreadsheets(t *testing.T) {
	archive := createTestZIP(t,
		zipEntry{"a.xlsx", "1"},
		zipEntry{"notes.md", "2"},
		zipEntry{"b.xls", "3"},
	)
	dest := t.TempDir()

	arts, err := ExtractAllSpreadsheets(archive, dest, spreadsheetExts)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, "a.xlsx", filepath.Base(arts[0].Path))
	assert.Equal(t, "b.xls", filepath.Base(arts[1].Path))
}

func TestListSpreadsheets(t *testing.T) {
	archive := createTestZIP(t,
		zipEntry{"docs/", ""},
		zipEntry{"docs/a.xlsx", "1"},
		zipEntry{"b.csv", "2"},
	)

	names, err := ListSpreadsheets(archive, spreadsheetExts)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.xlsx"}, names)
}

func TestExtract_SubdirectoryPreserved(t *testing.T) {
	archive := createTestZIP(t, zipEntry{"2024/enero/data.xlsx", "x"})
	dest := t.TempDir()

	art, err := ExtractFirstSpreadsheet(archive, dest, spreadsheetExts)
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Equal(t, filepath.Join(dest, "2024", "enero", "data.xlsx"), art.Path)
	assert.FileExists(t, art.Path)
}

func TestExtract_ZipSlipRejected(t *testing.T) {
	archive := createTestZIP(t, zipEntry{"../../evil.xlsx", "bad"})
	root := t.TempDir()
	dest := filepath.Join(root, "a", "b")

	_, err := ExtractFirstSpreadsheet(archive, dest, spreadsheetExts)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "evil.xlsx"))
}

func TestExtract_CorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o644))

	_, err := ExtractFirstSpreadsheet(path, t.TempDir(), spreadsheetExts)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCorruptArchive)
}

func TestExtract_MissingArchive(t *testing.T) {
	_, err := ExtractFirstSpreadsheet(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir(), spreadsheetExts)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestExtract_IntoWorkingDirectory(t *testing.T) {
	archive := createTestZIP(t, zipEntry{"data.xlsx", "x"})
	t.Chdir(t.TempDir())

	art, err := ExtractFirstSpreadsheet(archive, ".", spreadsheetExts)
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Equal(t, "data.xlsx", art.Path)
	assert.FileExists(t, "data.xlsx")
}

func TestExtract_ZipSlipRejectedFromWorkingDirectory(t *testing.T) {
	archive := createTestZIP(t, zipEntry{"../evil.xlsx", "bad"})
	root := t.TempDir()
	work := filepath.Join(root, "work")
	require.NoError(t, os.Mkdir(work, 0o755))
	t.Chdir(work)

	_, err := ExtractFirstSpreadsheet(archive, ".", spreadsheetExts)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrIO)
	assert.NoFileExists(t, filepath.Join(root, "evil.xlsx"))
}

func TestExtract_ReleaseRemovesCreatedDirectories(t *testing.T) {
	archive := createTestZIP(t, zipEntry{"2024/enero/data.xlsx", "x"})
	dest := t.TempDir()

	art, err := ExtractFirstSpreadsheet(archive, dest, spreadsheetExts)
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Equal(t, []string{filepath.Join(dest, "2024"), filepath.Join(dest, "2024", "enero")}, art.Dirs)

	require.NoError(t, art.Release())
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtract_ReleaseSharedDirectories(t *testing.T) {
	archive := createTestZIP(t,
		zipEntry{"docs/a.xlsx", "a"},
		zipEntry{"docs/b.xls", "b"},
	)
	dest := t.TempDir()

	arts, err := ExtractAllSpreadsheets(archive, dest, spreadsheetExts)
	require.NoError(t, err)
	require.Len(t, arts, 2)

	require.NoError(t, arts[0].Release())
	assert.DirExists(t, filepath.Join(dest, "docs"), "still holds b.xls")
	require.NoError(t, arts[1].Release())
	assert.NoDirExists(t, filepath.Join(dest, "docs"))
}

func TestExtract_ReleaseKeepsExistingDirectories(t *testing.T) {
	archive := createTestZIP(t, zipEntry{"docs/a.xlsx", "a"})
	dest := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dest, "docs"), 0o755))

	art, err := ExtractFirstSpreadsheet(archive, dest, spreadsheetExts)
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Empty(t, art.Dirs)

	require.NoError(t, art.Release())
	assert.DirExists(t, filepath.Join(dest, "docs"))
}
