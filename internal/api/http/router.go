package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-portal/internal/api/http/handlers"
	"github.com/spec-kit/ticket-portal/internal/app"
	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/router"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Sessions          *app.Registry
	SessionMiddleware *auth.SessionMiddleware
	Metrics           *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(a *fiber.App, cfg RouteConfig) {
	a.Get("/health/live", cfg.Health.Live)
	a.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		a.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	sessionHandler := handlers.NewSessionHandler(cfg.Sessions, cfg.SessionMiddleware)
	ticketsHandler := handlers.NewTicketsHandler()
	notificationsHandler := handlers.NewNotificationsHandler()
	analyticsHandler := handlers.NewAnalyticsHandler()
	viewsHandler := handlers.NewViewsHandler()

	bind := []fiber.Handler{cfg.SessionMiddleware.Handle, handlers.BindApp(cfg.Sessions)}
	signedIn := append(bind[:len(bind):len(bind)], auth.RequireIdentity(handlers.CurrentIdentity))

	viewsGroup := a.Group(handlers.ViewsPrefix, bind...)
	viewsGroup.Get("/*", viewsHandler.Show)

	sessionGroup := a.Group("/session", bind...)
	sessionGroup.Get("", sessionHandler.Get)
	sessionGroup.Post("/login", sessionHandler.Login)
	sessionGroup.Post("/signup", sessionHandler.Signup)
	sessionGroup.Post("/logout", sessionHandler.Logout)

	ticketsGroup := a.Group("/tickets", signedIn...)
	ticketsGroup.Get("", ticketsHandler.ListTickets)
	ticketsGroup.Post("/refresh", ticketsHandler.Refresh)
	ticketsGroup.Post("", auth.RequireView(router.PathNewTicket, handlers.CurrentIdentity), ticketsHandler.CreateTicket)
	ticketsGroup.Delete("/detail", ticketsHandler.CloseDetail)
	ticketsGroup.Get("/:id", ticketsHandler.GetTicket)
	ticketsGroup.Post("/:id/feedback", ticketsHandler.Feedback)
	ticketsGroup.Post("/:id/response", auth.RequireView(router.PathDashboard, handlers.CurrentIdentity), ticketsHandler.Respond)

	notificationsGroup := a.Group("/notifications", signedIn...)
	notificationsGroup.Get("", notificationsHandler.Inbox)
	notificationsGroup.Post("/:id/open", notificationsHandler.Open)

	analyticsGroup := a.Group("/analytics", bind...)
	analyticsGroup.Get("", auth.RequireView(router.PathAnalytics, handlers.CurrentIdentity), analyticsHandler.Dashboard)
}
