package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/channel"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/repository"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CaretakerService runs the periodic reconciliation sweep over the
// feedback collection. The sweep is stateless and safe to repeat; it is
// meant to be invoked on a fixed schedule.
type CaretakerService struct {
	feedback  repository.FeedbackRepository
	publisher channel.Publisher
	cfg       config.CaretakerConfig
	logger    *zap.Logger
	now       func() time.Time
}

// SweepResult reports what one sweep did, so operators can tell a clean
// run from a partial one.
type SweepResult struct {
	Expired     int
	Reaped      int
	Republished int
}

// NewCaretakerService constructs the service.
func NewCaretakerService(feedback repository.FeedbackRepository, publisher channel.Publisher, cfg config.CaretakerConfig, logger *zap.Logger) *CaretakerService {
	return &CaretakerService{
		feedback:  feedback,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep runs the three reconciliation scans in order: expire old
// archives, reap abandoned drafts, republish stuck records. Any store
// error aborts the whole sweep; a publish error aborts immediately so a
// failed sweep never silently skips remaining records.
func (s *CaretakerService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now().UTC()

	expired, err := s.expireArchived(ctx, now.Add(-s.cfg.KeepHistory()))
	if err != nil {
		return result, err
	}
	result.Expired = expired

	reaped, err := s.reapDrafts(ctx, now.Add(-s.cfg.ReapDraftsAfter()))
	if err != nil {
		return result, err
	}
	result.Reaped = reaped

	republished, err := s.republishStale(ctx, now.Add(-s.cfg.RepublishAfter()))
	if err != nil {
		return result, err
	}
	result.Republished = republished

	s.logger.Info("caretaker sweep complete",
		zap.Int("expired", result.Expired),
		zap.Int("reaped", result.Reaped),
		zap.Int("republished", result.Republished))
	return result, nil
}

func (s *CaretakerService) expireArchived(ctx context.Context, cutoff time.Time) (int, error) {
	records, err := s.feedback.ListArchivedBefore(ctx, cutoff)
	if err != nil {
		return 0, apperrors.NewStoreError(err)
	}
	for _, rec := range records {
		s.logger.Info("deleting expired archived feedback",
			zap.String("feedback_id", rec.ID),
			zap.Timep("archived_at", rec.ArchivedAt))
		if err := s.feedback.Delete(ctx, rec.ID); err != nil {
			return 0, apperrors.NewStoreError(err)
		}
	}
	return len(records), nil
}

func (s *CaretakerService) reapDrafts(ctx context.Context, cutoff time.Time) (int, error) {
	// Drafts are uploads whose client never completed the comment call.
	records, err := s.feedback.ListDraftsCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, apperrors.NewStoreError(err)
	}
	for _, rec := range records {
		s.logger.Info("deleting abandoned draft",
			zap.String("feedback_id", rec.ID),
			zap.Time("created_at", rec.CreatedAt))
		if err := s.feedback.Delete(ctx, rec.ID); err != nil {
			return 0, apperrors.NewStoreError(err)
		}
	}
	return len(records), nil
}

func (s *CaretakerService) republishStale(ctx context.Context, cutoff time.Time) (int, error) {
	records, err := s.feedback.ListStaleFinalized(ctx, cutoff)
	if err != nil {
		return 0, apperrors.NewStoreError(err)
	}
	for i, rec := range records {
		s.logger.Info("republishing stale feedback",
			zap.String("feedback_id", rec.ID),
			zap.Time("created_at", rec.CreatedAt))
		event := domain.NotificationEvent{
			Action:     domain.ActionCaretakerRetry,
			FeedbackID: rec.ID,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			// Abort rather than skip: a failed sweep must be visible.
			s.logger.Error("republish failed", zap.String("feedback_id", rec.ID), zap.Error(err))
			return i, apperrors.NewChannelError(err)
		}
	}
	return len(records), nil
}
