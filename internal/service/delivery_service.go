package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	netmail "net/mail"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/mail"
	"github.com/spec-kit/feedback-service/internal/repository"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// DeliveryService forwards finalized feedback by email. It is safe to
// invoke any number of times for the same record: the archived stamp on
// the record is the idempotency marker, checked before sending and
// written conditionally after.
type DeliveryService struct {
	feedback repository.FeedbackRepository
	uploads  repository.UploadRepository
	sender   mail.Sender
	cfg      config.MailgunConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewDeliveryService constructs the service.
func NewDeliveryService(feedback repository.FeedbackRepository, uploads repository.UploadRepository, sender mail.Sender, cfg config.MailgunConfig, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{
		feedback: feedback,
		uploads:  uploads,
		sender:   sender,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleEvent processes one notification event. Events this service
// does not own, events referencing missing records, and records with
// incomplete fields are logged and dropped: retrying cannot fix them.
// Transport and store failures return an error so the caller can log a
// failed (but still consumed) delivery; the caretaker re-triggers it.
func (s *DeliveryService) HandleEvent(ctx context.Context, event domain.NotificationEvent) error {
	if !event.Action.Known() {
		s.logger.Info("notification event ignored: action not intended for us",
			zap.String("action", string(event.Action)))
		return nil
	}
	if event.FeedbackID == "" {
		s.logger.Warn("notification event ignored: missing feedback id",
			zap.String("action", string(event.Action)))
		return nil
	}

	rec, err := s.feedback.GetByID(ctx, event.FeedbackID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("notification event dropped: feedback record not found",
				zap.String("feedback_id", event.FeedbackID))
			return nil
		}
		return apperrors.NewStoreError(err)
	}

	return s.Deliver(ctx, rec)
}

// Deliver sends one feedback record, stamping it archived on success.
// Already-archived records are a no-op success.
func (s *DeliveryService) Deliver(ctx context.Context, rec *domain.FeedbackRecord) error {
	if rec.Archived() {
		s.logger.Info("feedback already archived, skipping",
			zap.String("feedback_id", rec.ID))
		return nil
	}

	// A record that lost its email, subject or message cannot be
	// forwarded, ever; drop the event rather than retry it.
	if rec.Email == "" || rec.Subject == "" || rec.Message == "" {
		s.logger.Warn("feedback record incomplete, dropping",
			zap.String("feedback_id", rec.ID),
			zap.Bool("draft", rec.Draft()))
		return nil
	}

	var attachments []mail.Attachment
	if rec.HasUploads {
		children, err := s.uploads.ListByFeedback(ctx, rec.ID)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		for _, upload := range children {
			if upload.Ignored {
				continue
			}
			attachments = append(attachments, mail.Attachment{
				Filename:    upload.Filename,
				ContentType: mime.TypeByExtension(filepath.Ext(upload.Filename)),
				Data:        upload.Data,
			})
		}
	}

	replyTo := formatAddress(rec.Name, rec.Email)
	msg := mail.Message{
		From:        s.senderAddress(replyTo),
		To:          s.cfg.Recipient,
		ReplyTo:     replyTo,
		Subject:     rec.Subject,
		Text:        rec.Message,
		Attachments: attachments,
	}

	s.logger.Info("forwarding feedback",
		zap.String("feedback_id", rec.ID),
		zap.String("reply_to", replyTo),
		zap.Int("attachments", len(attachments)))

	messageID, err := s.sender.Send(ctx, msg)
	if err != nil {
		// No record mutation: archived_at stays empty so the caretaker
		// can re-trigger delivery later.
		return apperrors.NewTransportError(err)
	}

	stamped, err := s.feedback.Archive(ctx, rec.ID, s.now().UTC(), messageID)
	if err != nil {
		return apperrors.NewStoreError(err)
	}
	if !stamped {
		// Concurrent delivery won the stamp; the duplicate email is the
		// accepted at-least-once gap.
		s.logger.Warn("feedback archived by a concurrent delivery",
			zap.String("feedback_id", rec.ID))
		return nil
	}

	s.logger.Info("feedback archived",
		zap.String("feedback_id", rec.ID),
		zap.String("message_id", messageID))
	return nil
}

// ResendUnarchived fetches every finalized record that was never
// archived and delivers each immediately, bypassing the channel. Debug
// convenience; per-record failures are logged, not fatal.
func (s *DeliveryService) ResendUnarchived(ctx context.Context) error {
	records, err := s.feedback.ListUnarchivedFinalized(ctx)
	if err != nil {
		return apperrors.NewStoreError(err)
	}
	for i := range records {
		if err := s.Deliver(ctx, &records[i]); err != nil {
			s.logger.Error("resend failed", zap.String("feedback_id", records[i].ID), zap.Error(err))
		}
	}
	return nil
}

// senderAddress annotates the configured sender with the requester so
// the recipient's MUA presents who the feedback is from.
func (s *DeliveryService) senderAddress(replyTo string) string {
	senderAddr := s.cfg.Sender
	if parsed, err := netmail.ParseAddress(s.cfg.Sender); err == nil {
		senderAddr = parsed.Address
	}
	return formatAddress(fmt.Sprintf("%s via", replyTo), senderAddr)
}

func formatAddress(name, address string) string {
	addr := netmail.Address{Name: name, Address: address}
	return addr.String()
}
