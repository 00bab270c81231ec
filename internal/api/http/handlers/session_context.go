package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/app"
	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/domain"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

const appKey = "portal_app"

// BindApp attaches the session's App to the request. It must run after the
// session middleware.
func BindApp(sessions *app.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid, ok := auth.SessionIDFromContext(c)
		if !ok {
			return apperrors.NewInternalError(nil)
		}
		c.Locals(appKey, sessions.Get(c.UserContext(), sid))
		return c.Next()
	}
}

// CurrentApp returns the App bound by BindApp.
func CurrentApp(c *fiber.Ctx) *app.App {
	a, _ := c.Locals(appKey).(*app.App)
	return a
}

// CurrentIdentity returns the signed-in identity of the request's session.
func CurrentIdentity(c *fiber.Ctx) *domain.Identity {
	a := CurrentApp(c)
	if a == nil {
		return nil
	}
	return a.Identity()
}

func parseDates(c *fiber.Ctx) (domain.DateRange, bool, error) {
	var dates domain.DateRange
	start, end := c.Query("start"), c.Query("end")
	if start == "" && end == "" {
		return dates, false, nil
	}
	if start != "" {
		t, err := time.Parse(domain.DateLayout, start)
		if err != nil {
			return dates, false, apperrors.NewValidationError("start must be YYYY-MM-DD", map[string]any{"start": start})
		}
		dates.Start = &t
	}
	if end != "" {
		t, err := time.Parse(domain.DateLayout, end)
		if err != nil {
			return dates, false, apperrors.NewValidationError("end must be YYYY-MM-DD", map[string]any{"end": end})
		}
		dates.End = &t
	}
	return dates, true, nil
}
