package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"github.com/spec-kit/ticket-portal/internal/config"
)

const sessionKey = "portal_session_id"

// SessionMiddleware makes sure every browser carries a session cookie. The
// cookie holds a random UUID; the identity itself never leaves the server.
type SessionMiddleware struct {
	cookieName string
	secure     bool
	maxAge     time.Duration
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(cfg config.SessionConfig) *SessionMiddleware {
	name := cfg.CookieName
	if name == "" {
		name = "portal_sid"
	}
	return &SessionMiddleware{cookieName: name, secure: cfg.CookieSecure, maxAge: 30 * 24 * time.Hour}
}

// Handle resolves or issues the session id.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	// c.Cookies aliases the request buffer, which fasthttp reuses; the id
	// outlives the request as a registry key.
	sid := utils.CopyString(c.Cookies(m.cookieName))
	if _, err := uuid.Parse(sid); err != nil {
		m.Issue(c, uuid.NewString())
	} else {
		c.Locals(sessionKey, sid)
	}
	return c.Next()
}

// Issue sets sid as the session cookie and as the request's session id.
func (m *SessionMiddleware) Issue(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		Secure:   m.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(sessionKey, sid)
}

// SessionIDFromContext retrieves the session id set by Handle.
func SessionIDFromContext(c *fiber.Ctx) (string, bool) {
	sid, ok := c.Locals(sessionKey).(string)
	return sid, ok && sid != ""
}
