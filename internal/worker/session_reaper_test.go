package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingReaper struct {
	calls atomic.Int32
	ttl   atomic.Int64
}

func (r *countingReaper) Reap(_ time.Time, ttl time.Duration) int {
	r.ttl.Store(int64(ttl))
	r.calls.Add(1)
	return 0
}

func TestSessionReaperRunsUntilCancelled(t *testing.T) {
	r := &countingReaper{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartSessionReaper(ctx, r, 5*time.Millisecond, time.Minute, zap.NewNop())

	deadline := time.After(2 * time.Second)
	for r.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("reaper never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
	if time.Duration(r.ttl.Load()) != time.Minute {
		t.Fatalf("ttl = %v", time.Duration(r.ttl.Load()))
	}
}

func TestSessionReaperDisabled(t *testing.T) {
	done := StartSessionReaper(context.Background(), &countingReaper{}, 0, time.Minute, zap.NewNop())
	select {
	case <-done:
	default:
		t.Fatal("disabled reaper should report done immediately")
	}
}
