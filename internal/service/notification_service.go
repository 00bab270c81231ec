package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/tickets"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// NotificationService derives the unread inbox from the ticket cache and
// writes an activity log of the session's events.
type NotificationService struct {
	dispatcher
	cache *tickets.Cache
}

// NewNotificationService creates the service.
func NewNotificationService(deps Dependencies, cache *tickets.Cache) *NotificationService {
	return &NotificationService{dispatcher: newDispatcher(deps), cache: cache}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	d := n.store.Events()
	if d == nil {
		return
	}
	d.Subscribe(events.EventLoggedIn, n.handleIdentity)
	d.Subscribe(events.EventSessionRestored, n.handleIdentity)
	d.Subscribe(events.EventLoggedOut, n.handleIdentity)
	d.Subscribe(events.EventSessionExpired, n.handleIdentity)
	d.Subscribe(events.EventTicketSubmitted, n.handleTicket)
	d.Subscribe(events.EventFeedbackRecorded, n.handleTicket)
	d.Subscribe(events.EventStaffResponded, n.handleTicket)
	d.Subscribe(events.EventNotificationsRead, n.handleTicket)
}

func (n *NotificationService) handleIdentity(_ context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("session_id", event.SessionID)}
	if event.Identity != nil {
		fields = append(fields, zap.String("user_id", string(event.Identity.ID)), zap.String("role", event.Identity.Role.String()))
	}
	n.logger.Info(string(event.Type), fields...)
	return nil
}

func (n *NotificationService) handleTicket(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("session_id", event.SessionID),
		zap.String("ticket_id", string(event.TicketID)),
		zap.Any("payload", event.Payload))
	return nil
}

// Inbox lists tickets with unread messages from the other party.
func (n *NotificationService) Inbox() []tickets.Notification {
	identity := n.store.Current()
	if identity == nil {
		return []tickets.Notification{}
	}
	return tickets.Notifications(identity, n.cache.List())
}

// Open marks every message on the ticket read locally and returns a fresh
// detail view for it. Nothing is sent to the server.
func (n *NotificationService) Open(ctx context.Context, id domain.ID) (*tickets.Detail, error) {
	const action = "open_notification"
	identity, err := n.identity()
	if err != nil {
		return nil, n.reject(action, err)
	}
	if !n.cache.MarkRead(id) {
		return nil, n.reject(action, apperrors.NewNotFound("ticket", map[string]any{"id": string(id)}))
	}
	ticket, _ := n.cache.Get(id)
	n.publish(ctx, events.EventNotificationsRead, identity, id, nil)
	n.ok(action)
	return tickets.OpenDetail(ticket), nil
}
