package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/m4ck-y/nom024-Airflow/internal/config"
	"github.com/m4ck-y/nom024-Airflow/internal/dataset"
	"github.com/m4ck-y/nom024-Airflow/internal/fetcher"
	"github.com/m4ck-y/nom024-Airflow/internal/pipeline"
	"github.com/m4ck-y/nom024-Airflow/internal/scrape"
	"github.com/m4ck-y/nom024-Airflow/internal/store"
)

// newFetcher builds the scheme-routing fetcher used by every command.
func newFetcher(c *config.Config) *fetcher.Mux {
	h := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   c.Fetch.UserAgent,
		Timeout:     c.Fetch.Timeout(),
		RatePerHost: rate.Limit(c.Fetch.RatePerSecond),
	})
	f := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: c.Fetch.FTPTimeout()})
	return fetcher.NewMux(h, f)
}

// newOrchestrator wires discovery and retrieval over one fetcher.
func newOrchestrator(c *config.Config) *pipeline.Orchestrator {
	f := newFetcher(c)
	return pipeline.New(
		scrape.NewDiscoverer(f),
		fetcher.NewArtifactFetcher(f),
		c.Ingest.Extensions(),
	)
}

// loadRegistry returns the built-in pipelines plus those declared in path.
// File definitions replace built-ins of the same name.
func loadRegistry(path string) (*dataset.Registry, error) {
	reg := dataset.NewRegistry()
	if path == "" {
		return reg, nil
	}
	defs, err := dataset.LoadDefinitions(path)
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		reg.Register(d)
	}
	zap.L().Debug("pipeline definitions loaded", zap.String("path", path), zap.Int("count", len(defs)))
	return reg, nil
}

// openRunLog opens and migrates the run ledger.
func openRunLog(ctx context.Context, path string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, eris.Wrap(err, "open run log")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
