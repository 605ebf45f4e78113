package presence

import (
	"context"
	"time"

	"notesync/pkg/log"
)

// Sweeper periodically runs the staleness sweep against a reconciler.
type Sweeper struct {
	reconciler *Reconciler
	interval   time.Duration
	threshold  time.Duration
	logger     log.Logger
}

// NewSweeper creates a sweeper. It does nothing until Run is called.
func NewSweeper(reconciler *Reconciler, interval, threshold time.Duration, logger log.Logger) *Sweeper {
	return &Sweeper{
		reconciler: reconciler,
		interval:   interval,
		threshold:  threshold,
		logger:     logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if flipped := s.reconciler.SweepStale(s.threshold); flipped > 0 {
				s.logger.Debugf(ctx, "presence sweep marked %d users offline", flipped)
			}
		}
	}
}
