package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/smallnest/stategraph/store"
)

// MemoryJournal keeps step records in memory.
type MemoryJournal struct {
	mu   sync.RWMutex
	runs map[string][]*store.StepRecord
}

var _ store.Journal = (*MemoryJournal)(nil)

// NewMemoryJournal creates an empty in-memory journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		runs: make(map[string][]*store.StepRecord),
	}
}

// Append stores a copy of the record
func (m *MemoryJournal) Append(_ context.Context, record *store.StepRecord) error {
	rec := *record
	rec.Updated = slices.Clone(record.Updated)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rec.RunID] = append(m.runs[rec.RunID], &rec)
	return nil
}

// List returns the records of a run ordered by step
func (m *MemoryJournal) List(_ context.Context, runID string) ([]*store.StepRecord, error) {
	m.mu.RLock()
	records := slices.Clone(m.runs[runID])
	m.mu.RUnlock()

	slices.SortStableFunc(records, func(a, b *store.StepRecord) int {
		return a.Step - b.Step
	})
	if records == nil {
		records = []*store.StepRecord{}
	}
	return records, nil
}

// Clear removes all records of a run
func (m *MemoryJournal) Clear(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}

// Runs returns the ids of all runs with records, sorted.
func (m *MemoryJournal) Runs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
