package memory

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically evicts expired jobs from a Store. Its lifecycle is
// explicit: Run blocks until the context finishes, so service shutdown and
// deterministic tests both control it the same way.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper builds a Sweeper over store.
func NewSweeper(store *Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// Run sweeps on a fixed interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("job sweeper stopped")
			return
		case <-ticker.C:
			s.store.Sweep(ctx)
		}
	}
}
