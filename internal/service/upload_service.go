package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/repository"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// UploadService ingests file uploads, creating or extending a draft
// feedback record per submission.
type UploadService struct {
	feedback repository.FeedbackRepository
	uploads  repository.UploadRepository
	cfg      config.FeedbackConfig
	logger   *zap.Logger
}

// UploadInput describes one upload call after wire-level validation.
type UploadInput struct {
	Email    string
	Filename string
	Token    string
	ClientIP string
	Data     []byte
}

// NewUploadService constructs the service.
func NewUploadService(feedback repository.FeedbackRepository, uploads repository.UploadRepository, cfg config.FeedbackConfig, logger *zap.Logger) *UploadService {
	return &UploadService{feedback: feedback, uploads: uploads, cfg: cfg, logger: logger}
}

// Ingest appends one upload child to the submission identified by the
// correlation token, creating a fresh draft record when no token is
// supplied. It returns the token tying follow-up calls to the same
// submission.
func (s *UploadService) Ingest(ctx context.Context, input UploadInput) (string, error) {
	token := input.Token

	if token == "" {
		open, err := s.feedback.CountOpenByEmail(ctx, input.Email)
		if err != nil {
			return "", apperrors.NewStoreError(err)
		}
		if open >= s.cfg.MaxPendingSubmits {
			s.logger.Warn("too much feedback", zap.String("email", input.Email))
			return "", apperrors.NewQuotaExceeded(input.Email)
		}

		// Stub record; the remaining details arrive with the comment call.
		rec := &domain.FeedbackRecord{
			Email:      input.Email,
			ClientIP:   input.ClientIP,
			HasUploads: true,
		}
		if err := s.feedback.Create(ctx, rec); err != nil {
			return "", apperrors.NewStoreError(err)
		}
		token = rec.ID
	} else {
		if _, err := s.feedback.GetByID(ctx, token); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", apperrors.NewValidationError(apperrors.WireBadData, "unknown upload token")
			}
			return "", apperrors.NewStoreError(err)
		}
	}

	upload := &domain.UploadRecord{
		FeedbackID: token,
		Filename:   input.Filename,
		Data:       input.Data,
	}

	if input.Token != "" {
		count, err := s.uploads.CountByFeedback(ctx, token)
		if err != nil {
			return "", apperrors.NewStoreError(err)
		}
		if count >= s.cfg.MaxUploads {
			// Record the upload but replace its payload so the client's
			// upload sequence still completes and reaches the comment call.
			s.logger.Warn("too many uploads", zap.String("email", input.Email), zap.String("feedback_id", token))
			upload.Data = []byte(fmt.Sprintf("This upload was ignored; upload limit is %d", s.cfg.MaxUploads))
			upload.Ignored = true
		}
	}

	upload.ContentLength = int64(len(upload.Data))

	if err := s.uploads.Create(ctx, upload); err != nil {
		return "", apperrors.NewStoreError(err)
	}

	s.logger.Info("upload stored",
		zap.String("email", input.Email),
		zap.String("filename", input.Filename),
		zap.String("feedback_id", token),
		zap.Bool("ignored", upload.Ignored))
	return token, nil
}

// MaxUploadSize exposes the per-upload size cap for wire-level checks.
func (s *UploadService) MaxUploadSize() int {
	return s.cfg.MaxUploadSize
}
