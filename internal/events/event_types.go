package events

import (
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoggedIn          EventType = "logged_in"
	EventSessionRestored   EventType = "session_restored"
	EventLoggedOut         EventType = "logged_out"
	EventSessionExpired    EventType = "session_expired"
	EventTicketSubmitted   EventType = "ticket_submitted"
	EventFeedbackRecorded  EventType = "feedback_recorded"
	EventStaffResponded    EventType = "staff_responded"
	EventNotificationsRead EventType = "notifications_read"
)

// Event represents something that happened in one portal session.
type Event struct {
	Type      EventType
	SessionID string
	Identity  *domain.Identity
	TicketID  domain.ID
	Timestamp time.Time
	Payload   any
}

// IdentityChanged reports whether the event swaps the current identity.
func (e Event) IdentityChanged() bool {
	switch e.Type {
	case EventLoggedIn, EventSessionRestored, EventLoggedOut, EventSessionExpired:
		return true
	default:
		return false
	}
}

// FeedbackPayload payload.
type FeedbackPayload struct {
	Verdict domain.Verdict
}

// StaffResponsePayload payload.
type StaffResponsePayload struct {
	Rating domain.AIRating
}
