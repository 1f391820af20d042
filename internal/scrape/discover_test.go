package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4ck-y/nom024-Airflow/internal/fetcher"
	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

func newPageServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newDiscoverer() *Discoverer {
	return NewDiscoverer(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, RatePerHost: 100}))
}

func TestFindCandidates_FiltersAndClassifies(t *testing.T) {
	srv := newPageServer(t, `<html><body>
		<a href="/a.pdf">pdf</a>
		<a href="/b.xlsx">xlsx</a>
		<a href="/c.zip">zip</a>
	</body></html>`)

	got, err := newDiscoverer().FindCandidates(context.Background(), srv.URL+"/datos/", model.DefaultExtensions())
	require.NoError(t, err)
	assert.Equal(t, []model.LinkCandidate{
		{URL: srv.URL + "/b.xlsx", Extension: ".xlsx", Class: model.ClassSpreadsheet},
		{URL: srv.URL + "/c.zip", Extension: ".zip", Class: model.ClassArchive},
	}, got)
}

func TestFindCandidates_NoMatches(t *testing.T) {
	srv := newPageServer(t, `<html><body><a href="/informe.pdf">pdf</a><a>sin href</a></body></html>`)

	got, err := newDiscoverer().FindCandidates(context.Background(), srv.URL, model.DefaultExtensions())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindCandidates_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newDiscoverer().FindCandidates(context.Background(), srv.URL, model.DefaultExtensions())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFetch)
}

func TestParseCandidates_DocumentOrderAndDuplicates(t *testing.T) {
	html := `<ul>
		<li><a href="archivos/2023.ZIP">2023</a></li>
		<li><a>no link</a></li>
		<li><a href="  catalogo.xls  ">xls</a></li>
		<li><a href="https://cdn.example.org/x/catalogo.xlsx?dl=1#top">cdn</a></li>
		<li><a href="archivos/2023.ZIP">again</a></li>
		<li><a href="">empty</a></li>
		<li><a href="readme.txt">txt</a></li>
	</ul>`

	got, err := ParseCandidates(strings.NewReader(html), "http://www.example.gob.mx/datos/index.html", model.DefaultExtensions())
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "http://www.example.gob.mx/datos/archivos/2023.ZIP", got[0].URL)
	assert.Equal(t, ".zip", got[0].Extension)
	assert.Equal(t, model.ClassArchive, got[0].Class)
	assert.Equal(t, "http://www.example.gob.mx/datos/catalogo.xls", got[1].URL)
	assert.Equal(t, "https://cdn.example.org/x/catalogo.xlsx?dl=1#top", got[2].URL)
	assert.Equal(t, model.ClassSpreadsheet, got[2].Class)
	assert.Equal(t, got[0], got[3])
}

func TestParseCandidates_SubsetOfAnchors(t *testing.T) {
	var b strings.Builder
	want := 0
	for i := 0; i < 10; i++ {
		ext := []string{".xlsx", ".html", ".zip", ".csv", ".xls"}[i%5]
		if ext == ".xlsx" || ext == ".zip" || ext == ".xls" {
			want++
		}
		fmt.Fprintf(&b, `<a href="/f%d%s">f</a>`, i, ext)
	}

	got, err := ParseCandidates(strings.NewReader(b.String()), "http://example.com/", model.DefaultExtensions())
	require.NoError(t, err)
	assert.Len(t, got, want)
	for _, c := range got {
		assert.True(t, model.DefaultExtensions().Contains(c.Extension))
	}
}

func TestParseCandidates_CustomExtensions(t *testing.T) {
	exts := model.ExtensionSet{Archive: []string{"ZIP", "rar"}, Spreadsheet: []string{"csv"}}
	html := `<a href="/a.csv">a</a><a href="/b.rar">b</a><a href="/c.xlsx">c</a>`

	got, err := ParseCandidates(strings.NewReader(html), "http://example.com/", exts)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.ClassSpreadsheet, got[0].Class)
	assert.Equal(t, model.ClassArchive, got[1].Class)
}
