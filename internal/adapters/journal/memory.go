package journal

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// MemoryJournal is an in-memory implementation of the Journal interface.
// Entries live only for the lifetime of the process; it is the default for
// one-shot runs where no database is configured.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []*core.JournalEntry
	logger  *zap.Logger
}

// NewMemoryJournal creates a new in-memory journal
func NewMemoryJournal(logger *zap.Logger) *MemoryJournal {
	return &MemoryJournal{
		entries: make([]*core.JournalEntry, 0),
		logger:  logger,
	}
}

// Record appends one verdict to the journal
func (j *MemoryJournal) Record(ctx context.Context, entry *core.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, entry)
	return nil
}

// Stats aggregates the recorded verdicts
func (j *MemoryJournal) Stats(ctx context.Context) (*core.JournalStats, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stats := &core.JournalStats{}
	for _, entry := range j.entries {
		stats.TotalRecorded++
		if entry.IsSpam {
			stats.SpamDetected++
		}
		switch entry.Outcome {
		case core.OutcomeAutoClosed:
			stats.AutoClosed++
		case core.OutcomeLegitimate:
			stats.Legitimate++
		}
	}
	return stats, nil
}
