package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// batchProcessor is the slice of the triage service the poller drives
type batchProcessor interface {
	ProcessBatch(ctx context.Context) (*core.CycleStats, error)
}

// Poller periodically runs a processing cycle against the helpdesk. The
// first cycle starts immediately; each cycle is bounded by the polling
// interval so a slow helpdesk cannot stack cycles.
type Poller struct {
	processor batchProcessor
	logger    *zap.Logger
	interval  time.Duration
	cancel    context.CancelFunc
	doneCh    chan struct{}

	// totals accumulates cycle stats across the run. Written only by the
	// polling goroutine; read by Stop after that goroutine has exited.
	totals core.CycleStats
}

// NewPoller creates a new poller
func NewPoller(processor batchProcessor, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		processor: processor,
		logger:    logger,
		interval:  interval,
		doneCh:    make(chan struct{}),
	}
}

// Start launches the polling loop in the background
func (p *Poller) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.logger.Info("Poller starting", zap.Duration("interval", p.interval))
	go p.run(ctx)
	return nil
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)

	for {
		select {
		case <-ticker.C:
			p.cycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	stats, err := p.processor.ProcessBatch(cycleCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("Processing cycle failed", zap.Error(err))
		return
	}
	p.totals.Add(stats)
}

// Stop cancels the loop, waits for an in-flight cycle to wind down, and
// logs the run totals
func (p *Poller) Stop() error {
	if p.cancel != nil {
		p.cancel()
		<-p.doneCh
	}
	p.logger.Info("Poller stopped",
		zap.Int("total_processed", p.totals.TotalProcessed),
		zap.Int("spam_detected", p.totals.SpamDetected),
		zap.Int("auto_closed", p.totals.AutoClosed),
		zap.Int("legitimate", p.totals.Legitimate),
		zap.Int("errors", p.totals.Errors))
	return nil
}
