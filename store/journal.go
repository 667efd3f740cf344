package store

import (
	"context"
	"time"
)

// StepRecord describes one executed step of a graph run.
type StepRecord struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Step      int           `json:"step"`
	Node      string        `json:"node"`
	Next      string        `json:"next,omitempty"`
	Updated   []string      `json:"updated,omitempty"`
	State     any           `json:"state"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Journal records the steps of graph runs for later inspection.
// A journal is write-mostly; runs never read it back.
type Journal interface {
	// Append stores a step record
	Append(ctx context.Context, record *StepRecord) error

	// List returns the records of a run ordered by step
	List(ctx context.Context, runID string) ([]*StepRecord, error)

	// Clear removes all records of a run
	Clear(ctx context.Context, runID string) error
}
