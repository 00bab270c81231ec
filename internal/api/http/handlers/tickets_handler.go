package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/tickets"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// TicketsHandler manages the session's ticket list and detail view.
type TicketsHandler struct{}

// NewTicketsHandler constructs handler.
func NewTicketsHandler() *TicketsHandler {
	return &TicketsHandler{}
}

// ListTickets GET /tickets. Filters the cached list with q and status.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	status := tickets.Status(c.Query("status", string(tickets.StatusAll)))
	switch status {
	case tickets.StatusAll, tickets.StatusPending, tickets.StatusAnswered:
	default:
		return apperrors.NewValidationError("status must be all, pending or answered", map[string]any{"status": string(status)})
	}
	a := CurrentApp(c)
	list := a.Tickets(tickets.Filter{Query: c.Query("q"), Status: status})
	snap := a.Snapshot()
	return c.JSON(fiber.Map{
		"data":   dto.NewTicketList(list),
		"loaded": snap.Loaded,
		"banner": snap.Banner,
	})
}

// Refresh POST /tickets/refresh. Optional start and end set the date range.
func (h *TicketsHandler) Refresh(c *fiber.Ctx) error {
	dates, set, err := parseDates(c)
	if err != nil {
		return err
	}
	a := CurrentApp(c)
	if set {
		a.SetDates(dates)
	}
	if err := a.Refresh(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(a.Tickets(tickets.Filter{}))})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := CurrentApp(c).Submit(c.UserContext(), domain.TicketDraft{
		Title:       req.Title,
		Description: req.Description,
		Count:       req.NumberOfComplaints,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(*ticket)})
}

// GetTicket GET /tickets/:id. Opens a fresh detail view.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	a := CurrentApp(c)
	if _, err := a.OpenTicket(domain.ID(c.Params("id"))); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": detailResponse(c)})
}

// CloseDetail DELETE /tickets/detail.
func (h *TicketsHandler) CloseDetail(c *fiber.Ctx) error {
	CurrentApp(c).CloseDetail()
	return c.SendStatus(http.StatusNoContent)
}

// Feedback POST /tickets/:id/feedback.
func (h *TicketsHandler) Feedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	verdict, err := domain.ParseVerdict(req.Satisfaction)
	if err != nil {
		return apperrors.NewValidationError("satisfaction must be satisfied or unsatisfied", nil)
	}
	if err := CurrentApp(c).Feedback(c.UserContext(), domain.ID(c.Params("id")), verdict); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": detailResponse(c)})
}

// Respond POST /tickets/:id/response. Staff only.
func (h *TicketsHandler) Respond(c *fiber.Ctx) error {
	var req dto.StaffResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	a := CurrentApp(c)
	if err := a.Respond(c.UserContext(), domain.ID(c.Params("id")), req.Response, req.AIRating); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(a.Tickets(tickets.Filter{}))})
}

func detailResponse(c *fiber.Ctx) *dto.TicketDetailResponse {
	ticket, vote, open := CurrentApp(c).Detail()
	if !open {
		return nil
	}
	return &dto.TicketDetailResponse{Ticket: dto.NewTicketResponse(ticket), Vote: vote.String()}
}
