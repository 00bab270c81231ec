package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownSession is returned by Rotate for an id the registry does not hold.
var ErrUnknownSession = errors.New("unknown session")

type entry struct {
	app   *App
	ready chan struct{}
}

// Registry keeps one App per browser session.
type Registry struct {
	mu   sync.Mutex
	apps map[string]*entry
	deps Dependencies
}

// NewRegistry creates an empty registry sharing deps across sessions.
func NewRegistry(deps Dependencies) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{apps: map[string]*entry{}, deps: deps}
}

// Get returns the App for id, creating and starting it on first use. A new
// App restores whatever identity was persisted for id. Concurrent callers
// for the same id wait until that restore has finished.
func (r *Registry) Get(ctx context.Context, id string) *App {
	r.mu.Lock()
	if e, ok := r.apps[id]; ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
		}
		return e.app
	}
	e := &entry{app: New(id, r.deps), ready: make(chan struct{})}
	r.apps[id] = e
	n := len(r.apps)
	r.mu.Unlock()

	r.deps.Metrics.SetActiveSessions(n)
	defer close(e.ready)
	if err := e.app.Start(context.WithoutCancel(ctx)); err != nil {
		r.deps.Logger.Warn("session start incomplete", zap.String("session_id", id), zap.Error(err))
	}
	return e.app
}

// Rotate moves the session held under oldID to a fresh random id and
// returns it. The old id no longer resolves to the session afterwards.
func (r *Registry) Rotate(ctx context.Context, oldID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.apps[oldID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSession, oldID)
	}
	newID := uuid.NewString()
	if err := e.app.Rekey(ctx, newID); err != nil {
		return "", fmt.Errorf("rekey session: %w", err)
	}
	delete(r.apps, oldID)
	r.apps[newID] = e
	return newID, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// Reap drops sessions idle for longer than ttl and reports how many went.
// Their persisted identities stay, so a returning browser is restored.
func (r *Registry) Reap(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	removed := 0
	for id, e := range r.apps {
		select {
		case <-e.ready:
		default:
			continue
		}
		if now.Sub(e.app.LastUsed()) > ttl {
			delete(r.apps, id)
			removed++
		}
	}
	n := len(r.apps)
	r.mu.Unlock()

	if removed > 0 {
		r.deps.Metrics.SetActiveSessions(n)
		r.deps.Logger.Info("idle sessions reaped", zap.Int("removed", removed), zap.Int("active", n))
	}
	return removed
}
