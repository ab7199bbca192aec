package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/service"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// DeliveryHandler exposes a debug resend of every finalized record that
// was never archived, bypassing the channel.
type DeliveryHandler struct {
	service    *service.DeliveryService
	mailgunCfg config.MailgunConfig
}

// NewDeliveryHandler constructs handler.
func NewDeliveryHandler(deliveryService *service.DeliveryService, mailgunCfg config.MailgunConfig) *DeliveryHandler {
	return &DeliveryHandler{service: deliveryService, mailgunCfg: mailgunCfg}
}

// Resend POST /feedback/resend.
func (h *DeliveryHandler) Resend(c *fiber.Ctx) error {
	if !h.mailgunCfg.Configured() {
		return apperrors.NewConfigError("one or more MAILGUN_* runtime environment variables are not defined")
	}
	if err := h.service.ResendUnarchived(c.UserContext()); err != nil {
		return err
	}
	return c.SendString("OK")
}
