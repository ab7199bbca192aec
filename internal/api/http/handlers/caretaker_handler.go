package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/service"
)

// CaretakerHandler exposes the reconciliation sweep for an external
// scheduler to hit.
type CaretakerHandler struct {
	service *service.CaretakerService
}

// NewCaretakerHandler constructs handler.
func NewCaretakerHandler(caretakerService *service.CaretakerService) *CaretakerHandler {
	return &CaretakerHandler{service: caretakerService}
}

// Run POST /feedback/caretaker.
func (h *CaretakerHandler) Run(c *fiber.Ctx) error {
	if _, err := h.service.Sweep(c.UserContext()); err != nil {
		return err
	}
	return c.SendString("OK")
}
