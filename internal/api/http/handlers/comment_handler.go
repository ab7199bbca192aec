package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/dto"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/service"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CommentHandler manages the comment (finalization) entry point.
type CommentHandler struct {
	service *service.CommentService
	authCfg config.AuthConfig
}

// NewCommentHandler constructs handler.
func NewCommentHandler(commentService *service.CommentService, authCfg config.AuthConfig) *CommentHandler {
	return &CommentHandler{service: commentService, authCfg: authCfg}
}

// Submit POST /feedback/comment.
func (h *CommentHandler) Submit(c *fiber.Ctx) error {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		return apperrors.NewValidationError(apperrors.WireBadContent, "comment body must be application/json")
	}

	creds := auth.ParseAuthorization(c.Get(fiber.HeaderAuthorization))
	if err := creds.VerifySecret(h.authCfg.SenderAuthToken); err != nil {
		return err
	}

	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.WireBadData, "malformed comment payload")
	}

	email := req.Request.Requester.Email
	subject := req.Request.Subject
	message := req.Request.Comment.Body
	if email == "" || subject == "" || message == "" {
		return apperrors.NewValidationError(apperrors.WireBadData, "email, subject and comment body are required")
	}

	// The credential identity must match the claimed requester exactly.
	if creds.Username != email+"/token" {
		return apperrors.NewAuthError("credential does not match requester email")
	}

	if err := h.service.Submit(c.UserContext(), service.CommentInput{
		Email:    email,
		Name:     req.Request.Requester.Name,
		Subject:  subject,
		Message:  message,
		Token:    req.Request.Comment.FirstUploadToken(),
		ClientIP: clientIP(c),
	}); err != nil {
		return err
	}

	return c.SendString("OK")
}

// Probe GET /feedback/comment.
func (h *CommentHandler) Probe(c *fiber.Ctx) error {
	return probeSecret(c, h.authCfg)
}
