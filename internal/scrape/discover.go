// Package scrape finds downloadable data files linked from a web page.
package scrape

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/m4ck-y/nom024-Airflow/internal/fetcher"
	"github.com/m4ck-y/nom024-Airflow/internal/model"
	"github.com/m4ck-y/nom024-Airflow/internal/urlutil"
)

// maxPageBytes caps how much of a landing page is read.
const maxPageBytes = 8 << 20

// Discoverer downloads a page and lists the data files it links to.
type Discoverer struct {
	f   fetcher.Fetcher
	log *zap.Logger
}

// NewDiscoverer creates a Discoverer that downloads pages through f.
func NewDiscoverer(f fetcher.Fetcher) *Discoverer {
	return &Discoverer{
		f:   f,
		log: zap.L().With(zap.String("component", "link_discovery")),
	}
}

// FindCandidates returns every anchor on pageURL whose resolved target has a
// recognized extension, in document order. Duplicate links are kept. A page
// without matches yields an empty slice and no error.
func (d *Discoverer) FindCandidates(ctx context.Context, pageURL string, exts model.ExtensionSet) ([]model.LinkCandidate, error) {
	body, err := d.f.Download(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	page, err := io.ReadAll(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return nil, model.FetchError("read page "+pageURL, 0, eris.Wrap(err, "read body"))
	}

	doc, err := parseDocument(bytes.NewReader(page), pageURL)
	if err != nil {
		return nil, err
	}
	candidates := candidatesFrom(doc, pageURL, exts)

	if len(candidates) == 0 {
		if bt := DetectBlock(doc); bt != BlockNone {
			fields := []zap.Field{zap.String("url", pageURL), zap.String("block", string(bt))}
			if target, ok := RefreshTarget(doc); ok && target != "" {
				fields = append(fields, zap.String("refresh_to", urlutil.Resolve(pageURL, target)))
			}
			d.log.Warn("page looks like a challenge or redirect, not a catalog", fields...)
		}
	}

	d.log.Info("links discovered",
		zap.String("url", pageURL),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// ParseCandidates extracts link candidates from an HTML document. Relative
// hrefs are resolved against pageURL.
func ParseCandidates(r io.Reader, pageURL string, exts model.ExtensionSet) ([]model.LinkCandidate, error) {
	doc, err := parseDocument(r, pageURL)
	if err != nil {
		return nil, err
	}
	return candidatesFrom(doc, pageURL, exts), nil
}

func parseDocument(r io.Reader, pageURL string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, model.ParseError("parse page "+pageURL, eris.Wrap(err, "goquery"))
	}
	return doc, nil
}

func candidatesFrom(doc *goquery.Document, pageURL string, exts model.ExtensionSet) []model.LinkCandidate {
	candidates := []model.LinkCandidate{}
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		target := urlutil.Resolve(pageURL, href)
		ext, ok := urlutil.ExtensionOf(target)
		if !ok {
			return
		}
		class := exts.Classify(ext)
		if class == model.ClassOther {
			return
		}
		candidates = append(candidates, model.LinkCandidate{
			URL:       target,
			Extension: ext,
			Class:     class,
		})
	})
	return candidates
}
