package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/quickdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/quickdesk/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api")
	api.Get("/categories", cfg.Categories.List)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Put("/tickets/:id", cfg.Tickets.UpdateTicket)
	protected.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)
	protected.Put("/tickets/:id/assign", auth.RequireStaff(), cfg.Tickets.AssignTicket)
	protected.Put("/tickets/:id/vote", cfg.Tickets.VoteTicket)
	protected.Post("/tickets/:id/comments", cfg.Tickets.AddComment)
	protected.Put("/tickets/:ticketId/comments/:commentId/vote", cfg.Tickets.VoteComment)
	protected.Post("/tickets/:ticketId/comments/:commentId/reply", cfg.Tickets.ReplyToComment)

	protected.Get("/notifications", cfg.Notifications.List)
	protected.Put("/notifications/:id/read", cfg.Notifications.MarkRead)
}
