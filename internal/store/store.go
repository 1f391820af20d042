// Package store keeps a ledger of pipeline runs.
package store

import (
	"context"
	"time"
)

// RunStatus is the state of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one execution of a named pipeline.
type Run struct {
	ID         string     `json:"id"`
	Pipeline   string     `json:"pipeline"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Rows       int64      `json:"rows"`
	Source     string     `json:"source,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RunLog records pipeline runs.
type RunLog interface {
	Start(ctx context.Context, pipeline string) (*Run, error)
	Complete(ctx context.Context, runID string, rows int64, source string) error
	Fail(ctx context.Context, runID string, msg string) error
	// LastSuccess returns when pipeline last succeeded; ok is false if never.
	LastSuccess(ctx context.Context, pipeline string) (at time.Time, ok bool, err error)
	List(ctx context.Context, limit int) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
