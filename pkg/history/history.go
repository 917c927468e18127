// Package history journals finished runs so the tool keeps a durable local
// record of what it has done beyond the state database itself. Dry runs
// are not journaled.
package history

import (
	"context"
	"time"
)

// Record summarizes one completed run.
type Record struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Action     string         `json:"action"`
	DryRun     bool           `json:"dry_run"`
	Accounts   int            `json:"accounts"`
	Counts     map[string]int `json:"counts"`
}

// Store persists run records. Append never rewrites earlier records; List
// returns the most recent records first.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
}
