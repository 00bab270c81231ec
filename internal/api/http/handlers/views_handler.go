package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
)

// ViewsPrefix is where view paths are mounted on the gateway.
const ViewsPrefix = "/views"

// ViewsHandler routes browsers between portal views.
type ViewsHandler struct{}

// NewViewsHandler constructs handler.
func NewViewsHandler() *ViewsHandler {
	return &ViewsHandler{}
}

// Show GET /views/*. Redirects with 303 when the view may not render for
// the caller, otherwise returns the view state.
func (h *ViewsHandler) Show(c *fiber.Ctx) error {
	path := "/" + strings.TrimPrefix(c.Params("*"), "/")
	a := CurrentApp(c)
	decision := a.Navigate(c.UserContext(), path)
	if decision.IsRedirect() {
		return c.Redirect(ViewsPrefix+decision.Redirect, http.StatusSeeOther)
	}
	snap := a.Snapshot()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"view":         snap.View,
		"path":         snap.Path,
		"identity":     dto.NewIdentityResponse(snap.Identity),
		"banner":       snap.Banner,
		"detail_open":  snap.DetailOpen,
		"loaded":       snap.Loaded,
		"ticket_count": snap.TicketCount,
	}})
}
