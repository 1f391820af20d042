package pipeline

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/m4ck-y/nom024-Airflow/internal/fetcher"
	"github.com/m4ck-y/nom024-Airflow/internal/model"
	"github.com/m4ck-y/nom024-Airflow/internal/scrape"
)

func xlsxBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Hoja1")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func zipBytes(t *testing.T, entries map[string][]byte, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range order {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// site serves an index page plus files and counts hits per path.
type site struct {
	*httptest.Server
	mu    sync.Mutex
	files map[string][]byte
	hits  map[string]int
}

func newSite(t *testing.T, links []string, files map[string][]byte) *site {
	t.Helper()
	s := &site{files: files, hits: map[string]int{}}
	var page strings.Builder
	page.WriteString("<html><body><h1>Catálogos</h1><ul>")
	for _, l := range links {
		fmt.Fprintf(&page, `<li><a href="%s">%s</a></li>`, l, l)
	}
	page.WriteString("</ul></body></html>")

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		if r.URL.Path == "/catalogos/index.html" {
			fmt.Fprint(w, page.String())
			return
		}
		body, ok := s.files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body) //nolint:errcheck
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *site) pageURL() string { return s.URL + "/catalogos/index.html" }

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newOrchestrator() *Orchestrator {
	mux := fetcher.NewMux(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, RatePerHost: 100}), nil)
	return New(scrape.NewDiscoverer(mux), fetcher.NewArtifactFetcher(mux), model.DefaultExtensions())
}

var paisesRows = [][]string{
	{"Codigo Pais", "Pais", "Clave Nacionalidad"},
	{"484", "MEXICO", "MEX"},
	{"4", "AFGANISTAN", "AFG"},
	{"484", "MEXICO", "MEX"},
}
