package tickets

import (
	"errors"
	"sync"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

var (
	// ErrAlreadyVoted rejects a second verdict in the same detail view opening.
	ErrAlreadyVoted = errors.New("feedback already recorded for this ticket")
	// ErrVoteInFlight rejects a verdict while another one is being sent.
	ErrVoteInFlight = errors.New("feedback is already being sent")
)

// Detail is the open detail view of one ticket. Its vote is view-local and
// starts unset every time the view is opened.
type Detail struct {
	mu     sync.Mutex
	ticket domain.Ticket
	vote   domain.Vote
	voting bool
}

// OpenDetail starts a fresh detail view for t.
func OpenDetail(t domain.Ticket) *Detail {
	return &Detail{ticket: t.Clone()}
}

// Ticket returns the ticket shown in the view.
func (d *Detail) Ticket() domain.Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticket.Clone()
}

// Vote returns the verdict recorded in this opening.
func (d *Detail) Vote() domain.Vote {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vote
}

// BeginVote reserves the single vote of this opening.
func (d *Detail) BeginVote() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.vote != domain.VoteUnset:
		return ErrAlreadyVoted
	case d.voting:
		return ErrVoteInFlight
	}
	d.voting = true
	return nil
}

// CompleteVote records the acknowledged verdict.
func (d *Detail) CompleteVote(v domain.Verdict) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.voting = false
	d.vote = domain.VoteFor(v)
}

// AbortVote releases the reservation after a failed send.
func (d *Detail) AbortVote() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.voting = false
}
