package journal

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

func TestMemoryJournal_Stats(t *testing.T) {
	j := NewMemoryJournal(zap.NewNop())
	ctx := context.Background()

	entries := []*core.JournalEntry{
		{TicketID: 1, Outcome: core.OutcomeAutoClosed, IsSpam: true, Confidence: 0.95},
		{TicketID: 2, Outcome: core.OutcomeFlaggedForReview, IsSpam: true, Confidence: 0.72},
		{TicketID: 3, Outcome: core.OutcomeLegitimate, IsSpam: false, Confidence: 0.1},
	}
	for _, entry := range entries {
		require.NoError(t, j.Record(ctx, entry))
	}

	stats, err := j.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRecorded)
	assert.Equal(t, int64(2), stats.SpamDetected)
	assert.Equal(t, int64(1), stats.AutoClosed)
	assert.Equal(t, int64(1), stats.Legitimate)
}

func TestMemoryJournal_Empty(t *testing.T) {
	j := NewMemoryJournal(zap.NewNop())

	stats, err := j.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRecorded)
}

func TestMemoryJournal_ConcurrentRecords(t *testing.T) {
	j := NewMemoryJournal(zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = j.Record(ctx, &core.JournalEntry{TicketID: id, Outcome: core.OutcomeLegitimate})
		}(int64(i))
	}
	wg.Wait()

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), stats.TotalRecorded)
}
