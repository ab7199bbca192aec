package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/channel"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/repository"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CommentService finalizes a feedback submission: it fills in the
// comment details and announces the record on the notification channel.
type CommentService struct {
	feedback  repository.FeedbackRepository
	publisher channel.Publisher
	cfg       config.FeedbackConfig
	logger    *zap.Logger
}

// CommentInput describes one comment call after wire-level validation.
type CommentInput struct {
	Email    string
	Name     string
	Subject  string
	Message  string
	Token    string
	ClientIP string
}

// NewCommentService constructs the service.
func NewCommentService(feedback repository.FeedbackRepository, publisher channel.Publisher, cfg config.FeedbackConfig, logger *zap.Logger) *CommentService {
	return &CommentService{feedback: feedback, publisher: publisher, cfg: cfg, logger: logger}
}

// Submit finalizes the submission identified by the correlation token,
// or creates a record with no attachments when the token is empty, then
// publishes a submitted event. A publish failure after the store
// mutation leaves the record un-notified; the caretaker repairs that.
func (s *CommentService) Submit(ctx context.Context, input CommentInput) error {
	feedbackID := input.Token

	if feedbackID != "" {
		if err := s.feedback.Finalize(ctx, feedbackID, input.Subject, input.Message, input.Name); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewValidationError(apperrors.WireBadData, "unknown upload token")
			}
			return apperrors.NewStoreError(err)
		}
	} else {
		// Independent of the upload-path quota check; both are soft,
		// best-effort caps against unisolated reads.
		open, err := s.feedback.CountOpenByEmail(ctx, input.Email)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if open >= s.cfg.MaxPendingSubmits {
			s.logger.Warn("too much feedback", zap.String("email", input.Email))
			return apperrors.NewQuotaExceeded(input.Email)
		}

		rec := &domain.FeedbackRecord{
			Email:    input.Email,
			Name:     input.Name,
			Subject:  input.Subject,
			Message:  input.Message,
			ClientIP: input.ClientIP,
		}
		if err := s.feedback.Create(ctx, rec); err != nil {
			return apperrors.NewStoreError(err)
		}
		feedbackID = rec.ID
	}

	event := domain.NotificationEvent{
		Action:     domain.ActionSubmitted,
		FeedbackID: feedbackID,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return apperrors.NewChannelError(err)
	}

	s.logger.Info("feedback submitted",
		zap.String("email", input.Email),
		zap.String("feedback_id", feedbackID),
		zap.Bool("had_uploads", input.Token != ""))
	return nil
}
