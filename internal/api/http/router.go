package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Intake         *handlers.IntakeHandler
	Rules          *handlers.RulesHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	// The email webhook authenticates at the ingress layer, not with user
	// tokens.
	intake := app.Group("/intake")
	intake.Post("/email", cfg.Intake.ReceiveEmail)
	intake.Post("/poll", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Intake.PollNow)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", auth.RequireAuthenticated(), cfg.Tickets.Submit)
	tickets.Get("", auth.RequireAuthenticated(), cfg.Tickets.List)
	tickets.Get("/stats", auth.RequireAgent(), cfg.Tickets.Stats)
	tickets.Get("/:id", auth.RequireAuthenticated(), cfg.Tickets.Get)
	tickets.Get("/:id/sla", auth.RequireAuthenticated(), cfg.Tickets.SLAStatus)
	tickets.Post("/:id/reply", auth.RequireAgent(), cfg.Tickets.Reply)
	tickets.Post("/:id/assign", auth.RequireAgent(), cfg.Tickets.Assign)
	tickets.Post("/:id/close", auth.RequireAgent(), cfg.Tickets.Close)
	tickets.Post("/:id/route", auth.RequireAgent(), cfg.Tickets.Reroute)
	tickets.Get("/:id/routing-logs", auth.RequireAgent(), cfg.Tickets.RoutingLogs)

	rules := app.Group("/rules", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	rules.Post("", cfg.Rules.Create)
	rules.Get("", cfg.Rules.List)
	rules.Put("/:id", cfg.Rules.Update)
	rules.Delete("/:id", cfg.Rules.Delete)

	sla := app.Group("/sla-definitions", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	sla.Post("", cfg.SLA.Create)
	sla.Get("", cfg.SLA.List)
}
