package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultCacheSweepInterval = time.Minute

// Sweeper drops expired in-memory entries and reports how many it removed.
type Sweeper interface {
	Sweep() int
}

// RunSweepers calls every sweeper once per interval until ctx is done.
func RunSweepers(ctx context.Context, interval time.Duration, logger *zap.Logger, sweepers ...Sweeper) {
	if interval <= 0 {
		interval = DefaultCacheSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, s := range sweepers {
				removed += s.Sweep()
			}
			if removed > 0 {
				logger.Debug("evicted idle cache entries", zap.Int("count", removed))
			}
		}
	}
}
