package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/router"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// IdentityLookup returns the identity of the request's session, or nil.
type IdentityLookup func(*fiber.Ctx) *domain.Identity

// RequireView lets a request through only if the view at path would render
// for the caller. Browsers get redirects from the router; API callers get
// the matching error instead.
func RequireView(path string, lookup IdentityLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := lookup(c)
		if !router.Resolve(path, identity).IsRedirect() {
			return c.Next()
		}
		if identity == nil {
			return apperrors.NewUnauthorized("Please log in first.")
		}
		return apperrors.NewForbidden("This page is not available for your role.")
	}
}

// RequireIdentity ensures the session is signed in.
func RequireIdentity(lookup IdentityLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if lookup(c) == nil {
			return apperrors.NewUnauthorized("Please log in first.")
		}
		return c.Next()
	}
}
