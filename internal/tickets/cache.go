// Package tickets keeps the in-memory ticket list of one portal session.
package tickets

import (
	"context"
	"strings"
	"sync"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// Generation identifies one refresh attempt.
type Generation uint64

// Cache is the session's copy of the tickets the server returned. Refreshes
// replace the whole list; a refresh that was superseded by a newer one is
// cancelled and its result discarded.
type Cache struct {
	mu      sync.RWMutex
	tickets []domain.Ticket
	gen     Generation
	cancel  context.CancelFunc
	loaded  bool
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Begin starts a new refresh generation. The returned context is cancelled
// when a later Begin or Reset supersedes it.
func (c *Cache) Begin(ctx context.Context) (context.Context, Generation) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.cancel = cancel
	return ctx, c.gen
}

// Commit replaces the list if gen is still current and reports whether it did.
func (c *Cache) Commit(gen Generation, tickets []domain.Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.tickets = cloneAll(tickets)
	c.loaded = true
	c.finish()
	return true
}

// Abandon ends generation gen without touching the list.
func (c *Cache) Abandon(gen Generation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.finish()
	}
}

// Current reports whether gen is the latest refresh.
func (c *Cache) Current(gen Generation) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return gen == c.gen
}

func (c *Cache) finish() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Reset empties the cache and invalidates in-flight refreshes.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finish()
	c.gen++
	c.tickets = nil
	c.loaded = false
}

// Append adds a ticket the server just created.
func (c *Cache) Append(t domain.Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickets = append(c.tickets, t.Clone())
}

// List returns a copy of every cached ticket in server order.
func (c *Cache) List() []domain.Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.tickets)
}

// Loaded reports whether at least one refresh completed since the last Reset.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Len returns the number of cached tickets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tickets)
}

// Get returns a copy of the ticket with id.
func (c *Cache) Get(id domain.ID) (domain.Ticket, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.tickets {
		if c.tickets[i].ID == id {
			return c.tickets[i].Clone(), true
		}
	}
	return domain.Ticket{}, false
}

// MarkRead flags every message on the ticket as read. Local only.
func (c *Cache) MarkRead(id domain.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tickets {
		if c.tickets[i].ID != id {
			continue
		}
		msgs := make([]domain.Message, len(c.tickets[i].Messages))
		for j, m := range c.tickets[i].Messages {
			m.Read = true
			msgs[j] = m
		}
		c.tickets[i].Messages = msgs
		return true
	}
	return false
}

// Status filters tickets by whether staff answered them.
type Status string

const (
	StatusAll      Status = "all"
	StatusPending  Status = "pending"
	StatusAnswered Status = "answered"
)

// Filter narrows List output. Zero value matches everything.
type Filter struct {
	Query  string
	Status Status
}

// Search returns cached tickets matching f.
func (c *Cache) Search(f Filter) []domain.Ticket {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := []domain.Ticket{}
	for _, t := range c.List() {
		switch f.Status {
		case StatusPending:
			if t.Answered() {
				continue
			}
		case StatusAnswered:
			if !t.Answered() {
				continue
			}
		}
		if q != "" && !matches(t, q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t domain.Ticket, q string) bool {
	for _, field := range []string{t.Title, t.Description, t.Category, t.SubCategory} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func cloneAll(in []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
