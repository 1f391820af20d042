package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
	"github.com/m4ck-y/nom024-Airflow/internal/urlutil"
)

// DefaultFileName is used when a URL path has no usable last segment.
const DefaultFileName = "downloaded_file"

// ArtifactFetcher downloads remote files into a local directory.
type ArtifactFetcher struct {
	f Fetcher
}

// NewArtifactFetcher wraps a Fetcher (usually a *Mux).
func NewArtifactFetcher(f Fetcher) *ArtifactFetcher {
	return &ArtifactFetcher{f: f}
}

// Fetch streams rawURL into destDir, creating it if needed. The file name is
// the last segment of the URL path; an existing file of the same name is
// overwritten. The returned artifact is temporary.
func (a *ArtifactFetcher) Fetch(ctx context.Context, rawURL, destDir string) (*model.LocalArtifact, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, model.IOError("create download dir", eris.Wrap(err, destDir))
	}

	name := urlutil.FileName(rawURL)
	if name == "" {
		name = DefaultFileName
	}
	path := filepath.Join(destDir, filepath.Base(name))

	start := time.Now()
	n, err := a.f.DownloadToFile(ctx, rawURL, path)
	if err != nil {
		return nil, err
	}

	zap.L().Info("artifact downloaded",
		zap.String("url", rawURL),
		zap.String("path", path),
		zap.Int64("bytes", n),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &model.LocalArtifact{Path: path, SourceURL: rawURL, Temporary: true}, nil
}
