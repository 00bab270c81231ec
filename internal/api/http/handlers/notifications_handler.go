package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
	"github.com/spec-kit/ticket-portal/internal/domain"
)

// NotificationsHandler serves the unread inbox.
type NotificationsHandler struct{}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler() *NotificationsHandler {
	return &NotificationsHandler{}
}

// Inbox GET /notifications.
func (h *NotificationsHandler) Inbox(c *fiber.Ctx) error {
	inbox := CurrentApp(c).Inbox()
	items := make([]dto.NotificationResponse, 0, len(inbox))
	for _, n := range inbox {
		items = append(items, dto.NotificationResponse{Ticket: dto.NewTicketResponse(n.Ticket), UnreadCount: n.UnreadCount})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Open POST /notifications/:id/open. Marks the ticket read and opens it.
func (h *NotificationsHandler) Open(c *fiber.Ctx) error {
	if _, err := CurrentApp(c).OpenNotification(c.UserContext(), domain.ID(c.Params("id"))); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": detailResponse(c)})
}
