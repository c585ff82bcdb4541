package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweepable is a store that can drop entries whose window and lock have lapsed
type Sweepable interface {
	Sweep(ctx context.Context) (int64, error)
}

// Sweeper periodically removes stale lockout entries from an in-process store
type Sweeper struct {
	store    Sweepable
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a new sweeper
func NewSweeper(store Sweepable, logger *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("lockout sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("lockout sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := s.store.Sweep(sweepCtx)
	if err != nil {
		s.logger.Error("failed to sweep lockout entries", slog.Any("error", err))
		return
	}

	if removed > 0 {
		s.logger.Debug("lockout sweep completed", slog.Int64("entries_removed", removed))
	}
}

// Stop signals the sweeper to stop. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
