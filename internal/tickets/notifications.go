package tickets

import "github.com/spec-kit/ticket-portal/internal/domain"

// Notification is one inbox row: a ticket with unread messages from the
// other party.
type Notification struct {
	Ticket      domain.Ticket
	UnreadCount int
}

// Notifications derives the inbox for identity. Staff see every ticket with
// unread consumer messages; consumers only see their own tickets with unread
// staff messages.
func Notifications(identity *domain.Identity, tickets []domain.Ticket) []Notification {
	if !identity.Valid() {
		return nil
	}
	out := []Notification{}
	for _, t := range tickets {
		if identity.Role == domain.RoleConsumer && t.UserID != identity.ID {
			continue
		}
		unread := 0
		for _, m := range t.Messages {
			if m.Sender != identity.Role && !m.Read {
				unread++
			}
		}
		if unread > 0 {
			out = append(out, Notification{Ticket: t, UnreadCount: unread})
		}
	}
	return out
}
