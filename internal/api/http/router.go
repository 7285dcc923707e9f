package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	Users          *handlers.UsersHandler
	Dashboard      *handlers.DashboardHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. It must run after RegisterMiddlewares and
// installs the catch-all 404 handler last.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Live)
	api.Get("/health/ready", cfg.Health.Ready)

	authed := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", authed, cfg.Auth.Me)

	tickets := api.Group("/tickets", authed)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/my-tickets", cfg.Tickets.MyTickets)
	tickets.Get("/assigned", auth.RequireStaff(), cfg.Tickets.AssignedTickets)
	tickets.Get("/unassigned", auth.RequireStaff(), cfg.Tickets.UnassignedTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireAdmin(), cfg.Tickets.DeleteTicket)
	tickets.Patch("/:id/assign", auth.RequireStaff(), cfg.Tickets.AssignTicket)
	tickets.Patch("/:id/status", auth.RequireStaff(), cfg.Tickets.UpdateStatus)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:ticketId/comments", cfg.Comments.List)
	tickets.Post("/:ticketId/comments", cfg.Comments.Add)

	comments := api.Group("/comments", authed)
	comments.Patch("/:id", cfg.Comments.Update)
	comments.Delete("/:id", cfg.Comments.Delete)

	users := api.Group("/users", authed)
	users.Get("/", auth.RequireAdmin(), cfg.Users.List)
	users.Get("/technicians", cfg.Users.Technicians)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id", cfg.Users.Update)
	users.Delete("/:id", auth.RequireAdmin(), cfg.Users.Deactivate)

	dashboard := api.Group("/dashboard", authed)
	dashboard.Get("/stats", cfg.Dashboard.Stats)
	dashboard.Get("/stats/by-category", cfg.Dashboard.ByCategory)
	dashboard.Get("/stats/by-priority", cfg.Dashboard.ByPriority)
	dashboard.Get("/workload", auth.RequireStaff(), cfg.Dashboard.Workload)

	admin := api.Group("/admin", authed, auth.RequireAdmin())
	admin.Post("/tickets/bulk-assign", cfg.Admin.BulkAssign)
	admin.Patch("/tickets/bulk-status", cfg.Admin.BulkStatus)
	admin.Post("/reports/generate", cfg.Admin.GenerateReport)

	app.Use(notFound)
}
