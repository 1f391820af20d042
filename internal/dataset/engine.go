package dataset

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/m4ck-y/nom024-Airflow/internal/pipeline"
	"github.com/m4ck-y/nom024-Airflow/internal/store"
)

// Runner executes one pipeline. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Execute(ctx context.Context, p pipeline.Params) pipeline.Outcome
}

// Engine runs registered pipelines and records each run in a RunLog.
type Engine struct {
	runner       Runner
	runs         store.RunLog
	reg          *Registry
	downloadDir  string
	defaultStore string
	now          func() time.Time
}

// RunOpts configures which pipelines to run.
type RunOpts struct {
	Names []string // restrict to specific pipeline names
	Force bool     // ignore the cadence
}

// Summary lists pipeline names by result.
type Summary struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	Skipped   []string `json:"skipped"`
}

// OK reports whether no pipeline failed.
func (s Summary) OK() bool { return len(s.Failed) == 0 }

// NewEngine creates an engine. Definitions without a store write to
// defaultStore.
func NewEngine(r Runner, runs store.RunLog, reg *Registry, downloadDir, defaultStore string) *Engine {
	return &Engine{
		runner:       r,
		runs:         runs,
		reg:          reg,
		downloadDir:  downloadDir,
		defaultStore: defaultStore,
		now:          time.Now,
	}
}

// Run executes the selected pipelines one after another. A failing
// pipeline does not stop the others; only run log and selection errors are
// returned.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (Summary, error) {
	log := zap.L().With(zap.String("component", "dataset.engine"))
	var sum Summary

	defs, err := e.reg.Select(opts.Names)
	if err != nil {
		return sum, err
	}
	if len(defs) == 0 {
		log.Info("no pipelines selected")
		return sum, nil
	}
	log.Info("selected pipelines", zap.Int("count", len(defs)))

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		now := e.now().UTC()
		pLog := log.With(zap.String("pipeline", def.Name), zap.String("cadence", string(def.Cadence)))

		if !opts.Force {
			at, ok, err := e.runs.LastSuccess(ctx, def.Name)
			if err != nil {
				return sum, eris.Wrapf(err, "engine: check last success for %s", def.Name)
			}
			var last *time.Time
			if ok {
				last = &at
			}
			if !def.Cadence.ShouldRun(now, last) {
				pLog.Info("skipping (not due)")
				sum.Skipped = append(sum.Skipped, def.Name)
				continue
			}
		}

		run, err := e.runs.Start(ctx, def.Name)
		if err != nil {
			return sum, eris.Wrapf(err, "engine: start run log for %s", def.Name)
		}

		out := e.runner.Execute(ctx, def.Params(e.downloadDir, e.defaultStore, now))
		if !out.OK {
			msg := "pipeline failed"
			if out.Err != nil {
				msg = out.Err.Error()
			}
			if logErr := e.runs.Fail(ctx, run.ID, msg); logErr != nil {
				pLog.Error("failed to record run failure", zap.Error(logErr))
			}
			sum.Failed = append(sum.Failed, def.Name)
			continue
		}

		if err := e.runs.Complete(ctx, run.ID, out.Rows, out.Source); err != nil {
			pLog.Error("failed to record run completion", zap.Error(err))
		}
		sum.Succeeded = append(sum.Succeeded, def.Name)
	}

	log.Info("engine run complete",
		zap.Int("succeeded", len(sum.Succeeded)),
		zap.Int("skipped", len(sum.Skipped)),
		zap.Int("failed", len(sum.Failed)),
	)
	return sum, nil
}
