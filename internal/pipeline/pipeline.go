// Package pipeline runs one page-to-database ingestion: discover links,
// fetch the first usable spreadsheet, clean it and store it.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/m4ck-y/nom024-Airflow/internal/db"
	"github.com/m4ck-y/nom024-Airflow/internal/fetcher"
	"github.com/m4ck-y/nom024-Airflow/internal/model"
	"github.com/m4ck-y/nom024-Airflow/internal/transform"
	"github.com/m4ck-y/nom024-Airflow/internal/urlutil"
)

// ErrNoCandidates reports a page without any recognized data links.
var ErrNoCandidates = eris.New("pipeline: no candidate links found")

// Discoverer lists data links on a page.
type Discoverer interface {
	FindCandidates(ctx context.Context, pageURL string, exts model.ExtensionSet) ([]model.LinkCandidate, error)
}

// ArtifactFetcher downloads a link into a directory.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, rawURL, destDir string) (*model.LocalArtifact, error)
}

// SaveFunc persists a table. db.Save is the default.
type SaveFunc func(ctx context.Context, t model.Table, req db.Request) (int64, error)

// Params describes one ingestion run.
type Params struct {
	PageURL     string
	DownloadDir string
	// Transform runs after ColumnMapping; nil keeps the table as loaded.
	Transform transform.Stage
	// ColumnMapping renames raw spreadsheet headers before Transform.
	ColumnMapping map[string]string
	Table         string
	Store         string
	Policy        db.Policy
	Sheet         fetcher.SheetSelector
}

// Outcome summarizes a run. Err is nil only when OK is true.
type Outcome struct {
	OK         bool
	Rows       int64
	Source     string
	Candidates int
	Attempts   []Attempt
	Err        error
	Elapsed    time.Duration
}

// Attempt records one candidate that was tried.
type Attempt struct {
	URL string
	Err error
}

// Orchestrator wires discovery, retrieval, loading, transformation and
// persistence together.
type Orchestrator struct {
	discover Discoverer
	fetch    ArtifactFetcher
	save     SaveFunc
	exts     model.ExtensionSet
}

// New creates an Orchestrator recognizing exts.
func New(d Discoverer, f ArtifactFetcher, exts model.ExtensionSet) *Orchestrator {
	return &Orchestrator{discover: d, fetch: f, save: db.Save, exts: exts}
}

// WithSaver replaces the persistence function.
func (o *Orchestrator) WithSaver(fn SaveFunc) *Orchestrator {
	o.save = fn
	return o
}

// Run executes p and reports whether every step succeeded. Failures are
// logged, never returned.
func (o *Orchestrator) Run(ctx context.Context, p Params) bool {
	return o.Execute(ctx, p).OK
}

// Execute runs the pipeline and returns a detailed outcome.
func (o *Orchestrator) Execute(ctx context.Context, p Params) (out Outcome) {
	start := time.Now()
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("page", p.PageURL),
		zap.String("table", p.Table),
	)
	log.Info("pipeline: starting")

	var artifacts []*model.LocalArtifact
	defer func() {
		if r := recover(); r != nil {
			out.OK = false
			out.Err = eris.Errorf("pipeline: panic: %v", r)
		}
		for _, a := range artifacts {
			if err := a.Release(); err != nil {
				log.Warn("pipeline: release artifact", zap.String("path", a.Path), zap.Error(err))
			}
		}
		out.Elapsed = time.Since(start)
		if out.OK {
			log.Info("pipeline: complete",
				zap.String("source", out.Source),
				zap.Int64("rows", out.Rows),
				zap.Int64("duration_ms", out.Elapsed.Milliseconds()),
			)
		} else {
			log.Error("pipeline: failed",
				zap.Int("candidates", out.Candidates),
				zap.Int("attempts", len(out.Attempts)),
				zap.Int64("duration_ms", out.Elapsed.Milliseconds()),
				zap.Error(out.Err),
			)
		}
	}()

	if !urlutil.IsValid(p.PageURL) {
		out.Err = eris.Errorf("pipeline: invalid page url %q", p.PageURL)
		return out
	}
	if p.DownloadDir == "" {
		p.DownloadDir = "tmp"
	}

	candidates, err := o.discover.FindCandidates(ctx, p.PageURL, o.exts)
	if err != nil {
		out.Err = err
		return out
	}
	out.Candidates = len(candidates)
	if len(candidates) == 0 {
		out.Err = ErrNoCandidates
		return out
	}

	var (
		tbl    model.Table
		loaded bool
	)
	for _, c := range candidates {
		t, err := o.loadCandidate(ctx, c, p, &artifacts)
		out.Attempts = append(out.Attempts, Attempt{URL: c.URL, Err: err})
		if err != nil {
			log.Warn("pipeline: candidate skipped",
				zap.String("url", c.URL),
				zap.String("class", string(c.Class)),
				zap.Error(err),
			)
			continue
		}
		tbl, loaded, out.Source = t, true, c.URL
		log.Info("pipeline: candidate loaded",
			zap.String("url", c.URL),
			zap.Int("columns", len(t.Columns)),
			zap.Int("rows", t.Len()),
		)
		break
	}
	if !loaded {
		out.Err = eris.Wrapf(out.Attempts[len(out.Attempts)-1].Err,
			"pipeline: none of %d candidates yielded a table", len(candidates))
		return out
	}

	if len(p.ColumnMapping) > 0 {
		if tbl, err = transform.ApplyColumnMapping(p.ColumnMapping)(tbl); err != nil {
			out.Err = err
			return out
		}
	}

	if tbl, err = runTransform(p.Transform, tbl); err != nil {
		out.Err = err
		return out
	}

	n, err := o.save(ctx, tbl, db.Request{Location: p.Store, Table: p.Table, Policy: p.Policy})
	if err != nil {
		out.Err = err
		return out
	}

	out.OK, out.Rows = true, n
	return out
}

// loadCandidate fetches c (extracting it when it is an archive) and loads
// the resulting spreadsheet. Every artifact it creates is appended to
// artifacts so the caller can release it.
func (o *Orchestrator) loadCandidate(ctx context.Context, c model.LinkCandidate, p Params, artifacts *[]*model.LocalArtifact) (model.Table, error) {
	art, err := o.fetch.Fetch(ctx, c.URL, p.DownloadDir)
	if err != nil {
		return model.Table{}, err
	}
	*artifacts = append(*artifacts, art)

	path := art.Path
	if c.Class == model.ClassArchive {
		inner, err := fetcher.ExtractFirstSpreadsheet(art.Path, p.DownloadDir, o.exts.Spreadsheet)
		if relErr := art.Release(); relErr != nil {
			zap.L().Warn("pipeline: release archive", zap.String("path", art.Path), zap.Error(relErr))
		}
		if err != nil {
			return model.Table{}, err
		}
		if inner == nil {
			return model.Table{}, model.NotFoundError("extract "+c.URL, eris.New("archive holds no spreadsheet"))
		}
		*artifacts = append(*artifacts, inner)
		path = inner.Path
	}

	return fetcher.LoadTable(ctx, path, p.Sheet)
}

// runTransform applies stage, turning a panic into an error.
func runTransform(stage transform.Stage, t model.Table) (out model.Table, err error) {
	if stage == nil {
		return t, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pipeline: transform panicked: %v", r)
		}
	}()
	return stage(t)
}
