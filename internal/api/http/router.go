package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chamado-hq/helpdesk-service/internal/api/http/handlers"
	"github.com/chamado-hq/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Attachments    *handlers.AttachmentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Assign requires the admin role; close
// additionally admits the current assignee, checked in the handler.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// signed URL is its own credential
	app.Get("/attachments/blob/:key", cfg.Attachments.Download)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.Open)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/assign", auth.RequireAdmin(), cfg.Tickets.Assign)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Post("/:id/messages", cfg.Tickets.PostMessage)
	tickets.Get("/:id/messages", cfg.Tickets.Messages)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/attachments", cfg.Attachments.Upload)

	api.Get("/attachments/:id/url", cfg.Attachments.SignURL)
}
