package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Upload    *handlers.UploadHandler
	Comment   *handlers.CommentHandler
	Caretaker *handlers.CaretakerHandler
	Delivery  *handlers.DeliveryHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	feedback := app.Group("/feedback")
	feedback.Post("/upload", cfg.Upload.Submit)
	feedback.Get("/upload", cfg.Upload.Probe)
	feedback.Post("/comment", cfg.Comment.Submit)
	feedback.Get("/comment", cfg.Comment.Probe)

	// Scheduler and debug endpoints accept GET too; the original
	// functions were method-agnostic.
	feedback.Post("/caretaker", cfg.Caretaker.Run)
	feedback.Get("/caretaker", cfg.Caretaker.Run)
	feedback.Post("/resend", cfg.Delivery.Resend)
	feedback.Get("/resend", cfg.Delivery.Resend)
}
