// Package router decides which view a (path, identity) pair may render.
package router

import (
	"path"
	"strings"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// View identifies a screen of the portal.
type View string

const (
	ViewHome      View = "home"
	ViewLogin     View = "login"
	ViewSignup    View = "signup"
	ViewTickets   View = "tickets"
	ViewNewTicket View = "new_ticket"
	ViewDashboard View = "dashboard"
	ViewAnalytics View = "analytics"
)

// Paths served by the portal.
const (
	PathHome      = "/"
	PathLogin     = "/login"
	PathSignup    = "/signup"
	PathTickets   = "/tickets"
	PathNewTicket = "/tickets/new"
	PathDashboard = "/admin"
	PathAnalytics = "/admin/analytics"
)

var views = map[string]View{
	PathHome:      ViewHome,
	PathLogin:     ViewLogin,
	PathSignup:    ViewSignup,
	PathTickets:   ViewTickets,
	PathNewTicket: ViewNewTicket,
	PathDashboard: ViewDashboard,
	PathAnalytics: ViewAnalytics,
}

// Decision is either a view to render or a path to redirect to.
type Decision struct {
	View     View
	Redirect string
}

// IsRedirect reports whether the caller must navigate elsewhere.
func (d Decision) IsRedirect() bool {
	return d.Redirect != ""
}

func render(v View) Decision      { return Decision{View: v} }
func redirect(to string) Decision { return Decision{Redirect: to} }

// Landing returns the default view path for an identity.
func Landing(identity *domain.Identity) string {
	if identity == nil {
		return PathHome
	}
	switch identity.Role {
	case domain.RoleConsumer:
		return PathTickets
	case domain.RoleStaff:
		return PathDashboard
	default:
		return PathHome
	}
}

// Resolve maps a request path and the current identity (nil when signed
// out) to a Decision. It depends on nothing else.
func Resolve(requested string, identity *domain.Identity) Decision {
	p := Clean(requested)
	view, known := views[p]
	if !known {
		return redirect(PathHome)
	}

	if identity == nil || !identity.Valid() {
		switch view {
		case ViewHome, ViewLogin, ViewSignup:
			return render(view)
		default:
			return redirect(PathLogin)
		}
	}

	switch view {
	case ViewLogin, ViewSignup:
		return redirect(Landing(identity))
	case ViewHome:
		return render(view)
	}

	switch identity.Role {
	case domain.RoleConsumer:
		switch view {
		case ViewDashboard, ViewAnalytics:
			return redirect(PathHome)
		default:
			return render(view)
		}
	case domain.RoleStaff:
		switch view {
		case ViewTickets, ViewNewTicket:
			return redirect(PathHome)
		default:
			return render(view)
		}
	default:
		return redirect(PathLogin)
	}
}

// Clean normalizes a request path: leading slash, no trailing slash, no query.
func Clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return PathHome
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
