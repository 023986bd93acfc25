package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketdesk/internal/api/http/handlers"
	"github.com/spec-kit/ticketdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Auth           *handlers.AuthHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
	SupportRoleRef string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	requireSupport := auth.RequireRole(cfg.SupportRoleRef)
	app.Get("/metrics", cfg.AuthMiddleware.Handle, requireSupport, cfg.Metrics.Snapshot)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, requireSupport)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/reattach", cfg.Tickets.Reattach)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.TicketHistory)
	tickets.Post("/:id/claim", cfg.Tickets.ClaimTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
}
