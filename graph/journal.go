package graph

import (
	"context"

	"github.com/smallnest/stategraph/log"
	"github.com/smallnest/stategraph/store"
)

// JournalHook returns a trace hook that appends a store.StepRecord for every
// finished node span. Journal write failures are logged and never fail the run.
func JournalHook(journal store.Journal, logger log.Logger) TraceHook {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return TraceHookFunc(func(ctx context.Context, span *TraceSpan) {
		if span.Event != TraceEventNodeEnd && span.Event != TraceEventNodeError {
			return
		}
		if err := journal.Append(ctx, StepRecordFromSpan(span)); err != nil {
			logger.Warn("journal: step %d of run %s not recorded: %v", span.Step(), span.RunID(), err)
		}
	})
}

// StepRecordFromSpan converts a finished node span into a journal record.
func StepRecordFromSpan(span *TraceSpan) *store.StepRecord {
	rec := &store.StepRecord{
		ID:        span.ID,
		RunID:     span.RunID(),
		Step:      span.Step(),
		Node:      span.NodeName,
		State:     span.State,
		Duration:  span.Duration,
		Timestamp: span.StartTime,
	}
	if next, ok := span.Metadata["next"].(string); ok {
		rec.Next = next
	}
	if updated, ok := span.Metadata["update"].([]string); ok {
		rec.Updated = updated
	}
	if span.Error != nil {
		rec.Error = span.Error.Error()
	}
	return rec
}
