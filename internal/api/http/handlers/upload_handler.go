package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/dto"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/service"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

const uploadContentType = "application/binary"

// UploadHandler manages the upload entry point.
type UploadHandler struct {
	service *service.UploadService
	authCfg config.AuthConfig
}

// NewUploadHandler constructs handler.
func NewUploadHandler(uploadService *service.UploadService, authCfg config.AuthConfig) *UploadHandler {
	return &UploadHandler{service: uploadService, authCfg: authCfg}
}

// Submit POST /feedback/upload.
func (h *UploadHandler) Submit(c *fiber.Ctx) error {
	creds := auth.ParseAuthorization(c.Get(fiber.HeaderAuthorization))

	email, err := creds.RequesterEmail()
	if err != nil {
		return err
	}
	if err := creds.VerifySecret(h.authCfg.SenderAuthToken); err != nil {
		return err
	}

	filename := c.Query("filename")
	if filename == "" {
		return apperrors.NewValidationError(apperrors.WireBadFilename, "missing filename")
	}

	if c.Get(fiber.HeaderContentType) != uploadContentType {
		return apperrors.NewValidationError(apperrors.WireBadContent, "upload body must be "+uploadContentType)
	}

	body := c.Body()
	if len(body) == 0 {
		return apperrors.NewValidationError(apperrors.WireBadData, "empty upload body")
	}
	if len(body) > h.service.MaxUploadSize() {
		return apperrors.NewValidationError(apperrors.WireBadData, "upload body too large")
	}

	// Fiber reuses the body buffer after the handler returns.
	data := make([]byte, len(body))
	copy(data, body)

	token, err := h.service.Ingest(c.UserContext(), service.UploadInput{
		Email:    email,
		Filename: filename,
		Token:    c.Query("token"),
		ClientIP: clientIP(c),
		Data:     data,
	})
	if err != nil {
		return err
	}

	return c.JSON(dto.UploadResponse{Upload: dto.UploadToken{Token: token}})
}

// Probe GET /feedback/upload. Uploads must be POSTed; as a setup
// convenience an unconfigured secret is reported instead of 405.
func (h *UploadHandler) Probe(c *fiber.Ctx) error {
	return probeSecret(c, h.authCfg)
}

func probeSecret(c *fiber.Ctx, cfg config.AuthConfig) error {
	if cfg.SenderAuthToken == "" {
		return c.SendString("You must define FEEDBACK_SENDER_AUTHTOKEN as a runtime environment variable. See README for details.")
	}
	return c.SendStatus(fiber.StatusMethodNotAllowed)
}

func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return c.IP()
}
