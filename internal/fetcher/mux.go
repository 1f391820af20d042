package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// Fetcher retrieves the content behind a URL. Implementations make a single
// attempt and report failures as model errors of kind KindFetch or KindIO.
type Fetcher interface {
	// Download opens rawURL; the caller closes the body.
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
	// DownloadToFile saves rawURL at path and returns the bytes written.
	// A failed transfer leaves no file behind.
	DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error)
}

var (
	_ Fetcher = (*Mux)(nil)
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = (*FTPFetcher)(nil)
)

// Mux routes downloads to a Fetcher by URL scheme.
type Mux struct {
	schemes map[string]Fetcher
}

// NewMux returns a Mux serving http and https with h and ftp with f. Either
// may be nil to leave the scheme unsupported.
func NewMux(h *HTTPFetcher, f *FTPFetcher) *Mux {
	m := &Mux{schemes: make(map[string]Fetcher)}
	if h != nil {
		m.Handle("http", h)
		m.Handle("https", h)
	}
	if f != nil {
		m.Handle("ftp", f)
	}
	return m
}

// Handle registers a fetcher for a scheme.
func (m *Mux) Handle(scheme string, f Fetcher) {
	m.schemes[strings.ToLower(scheme)] = f
}

func (m *Mux) route(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, model.FetchError("parse url", 0, eris.Wrap(err, rawURL))
	}
	f, ok := m.schemes[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, model.FetchError("route "+rawURL, 0, eris.Errorf("unsupported scheme %q", u.Scheme))
	}
	return f, nil
}

// Download implements Fetcher.
func (m *Mux) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := m.route(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile implements Fetcher.
func (m *Mux) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := m.route(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}
