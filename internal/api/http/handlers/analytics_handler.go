package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
)

// AnalyticsHandler serves the staff dashboard.
type AnalyticsHandler struct{}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler() *AnalyticsHandler {
	return &AnalyticsHandler{}
}

// Dashboard GET /analytics with optional start and end.
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	dates, set, err := parseDates(c)
	if err != nil {
		return err
	}
	a := CurrentApp(c)
	if set {
		a.SetDates(dates)
	}
	d, err := a.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{Metrics: d.Metrics, GraphURLs: d.GraphURLs}})
}
