package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper evicts idle sessions.
type Reaper interface {
	Reap(now time.Time, ttl time.Duration) int
}

// StartSessionReaper evicts sessions idle for longer than ttl every interval
// until ctx is done. The returned channel closes when the loop exits.
func StartSessionReaper(ctx context.Context, sessions Reaper, interval, ttl time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if sessions == nil || interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Debug("session reaper stopped")
				return
			case now := <-ticker.C:
				sessions.Reap(now, ttl)
			}
		}
	}()
	return done
}
