package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
	"github.com/spec-kit/ticket-portal/internal/app"
	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/service"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// SessionHandler exposes login, signup and logout. A successful sign in
// moves the session to a fresh id so a cookie planted beforehand is useless.
type SessionHandler struct {
	sessions *app.Registry
	cookies  *auth.SessionMiddleware
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *app.Registry, cookies *auth.SessionMiddleware) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookies: cookies}
}

// Get handles GET /session.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": sessionResponse(c)})
}

// Login handles POST /session/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := CurrentApp(c).Login(c.UserContext(), req.Username, req.Password); err != nil {
		return err
	}
	if err := h.rotate(c); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(c)})
}

// Signup handles POST /session/signup.
func (h *SessionHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	err := CurrentApp(c).Signup(c.UserContext(), service.SignupInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	if err := h.rotate(c); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionResponse(c)})
}

// Logout handles POST /session/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	if err := CurrentApp(c).Logout(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(c)})
}

func (h *SessionHandler) rotate(c *fiber.Ctx) error {
	sid, ok := auth.SessionIDFromContext(c)
	if !ok {
		return apperrors.NewInternalError(nil)
	}
	newID, err := h.sessions.Rotate(c.UserContext(), sid)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	h.cookies.Issue(c, newID)
	return nil
}

func sessionResponse(c *fiber.Ctx) dto.SessionResponse {
	snap := CurrentApp(c).Snapshot()
	return dto.SessionResponse{
		Identity: dto.NewIdentityResponse(snap.Identity),
		Path:     snap.Path,
		View:     string(snap.View),
		Banner:   snap.Banner,
	}
}
