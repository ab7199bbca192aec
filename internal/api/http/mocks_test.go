package http_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/feedback-service/internal/api/http"
	"github.com/spec-kit/feedback-service/internal/api/http/handlers"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/mail"
	"github.com/spec-kit/feedback-service/internal/observability"
	"github.com/spec-kit/feedback-service/internal/repository"
	"github.com/spec-kit/feedback-service/internal/service"
)

const testSecret = "s3cret-token"

// memFeedbackRepo is a map-backed FeedbackRepository for endpoint tests.
type memFeedbackRepo struct {
	mu      sync.Mutex
	records map[string]*domain.FeedbackRecord
	seq     int
}

func newMemFeedbackRepo() *memFeedbackRepo {
	return &memFeedbackRepo{records: make(map[string]*domain.FeedbackRecord)}
}

func (m *memFeedbackRepo) Create(ctx context.Context, rec *domain.FeedbackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rec.ID = fmt.Sprintf("rec-%d", m.seq)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	clone := *rec
	m.records[rec.ID] = &clone
	return nil
}

func (m *memFeedbackRepo) GetByID(ctx context.Context, id string) (*domain.FeedbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *memFeedbackRepo) CountOpenByEmail(ctx context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.records {
		if rec.Email == email && rec.ArchivedAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *memFeedbackRepo) Finalize(ctx context.Context, id, subject, message, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Subject = subject
	rec.Message = message
	rec.Name = name
	return nil
}

func (m *memFeedbackRepo) Archive(ctx context.Context, id string, archivedAt time.Time, externalMessageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if rec.ArchivedAt != nil {
		return false, nil
	}
	rec.ArchivedAt = &archivedAt
	rec.ExternalMessageID = externalMessageID
	return true, nil
}

func (m *memFeedbackRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *memFeedbackRepo) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	return m.list(func(rec *domain.FeedbackRecord) bool {
		return rec.ArchivedAt != nil && !rec.ArchivedAt.After(cutoff)
	})
}

func (m *memFeedbackRepo) ListDraftsCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	return m.list(func(rec *domain.FeedbackRecord) bool {
		return rec.Message == "" && !rec.CreatedAt.After(cutoff)
	})
}

func (m *memFeedbackRepo) ListStaleFinalized(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	return m.list(func(rec *domain.FeedbackRecord) bool {
		return rec.ArchivedAt == nil && rec.Message != "" && !rec.CreatedAt.After(cutoff)
	})
}

func (m *memFeedbackRepo) ListUnarchivedFinalized(ctx context.Context) ([]domain.FeedbackRecord, error) {
	return m.list(func(rec *domain.FeedbackRecord) bool {
		return rec.ArchivedAt == nil && rec.Message != ""
	})
}

func (m *memFeedbackRepo) list(match func(*domain.FeedbackRecord) bool) ([]domain.FeedbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.FeedbackRecord
	for _, rec := range m.records {
		if match(rec) {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (m *memFeedbackRepo) get(id string) *domain.FeedbackRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// memUploadRepo is a slice-backed UploadRepository.
type memUploadRepo struct {
	mu      sync.Mutex
	uploads []domain.UploadRecord
	seq     int
}

func (m *memUploadRepo) Create(ctx context.Context, upload *domain.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	upload.ID = fmt.Sprintf("upl-%d", m.seq)
	m.uploads = append(m.uploads, *upload)
	return nil
}

func (m *memUploadRepo) ListByFeedback(ctx context.Context, feedbackID string) ([]domain.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.UploadRecord
	for _, upload := range m.uploads {
		if upload.FeedbackID == feedbackID {
			result = append(result, upload)
		}
	}
	return result, nil
}

func (m *memUploadRepo) CountByFeedback(ctx context.Context, feedbackID string) (int, error) {
	uploads, _ := m.ListByFeedback(ctx, feedbackID)
	return len(uploads), nil
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	Events []domain.NotificationEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event domain.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}

// captureSender records outbound messages.
type captureSender struct {
	mu   sync.Mutex
	Sent []mail.Message
	seq  int
}

func (s *captureSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, msg)
	s.seq++
	return fmt.Sprintf("msg-%d", s.seq), nil
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sent)
}

// testEnv bundles the app under test with its backing fakes.
type testEnv struct {
	app      *fiber.App
	feedback *memFeedbackRepo
	uploads  *memUploadRepo
	events   *capturePublisher
	sender   *captureSender
}

func testFeedbackConfig() config.FeedbackConfig {
	return config.FeedbackConfig{
		MaxPendingSubmits: 5,
		MaxUploads:        10,
		MaxUploadSize:     1 << 20,
	}
}

func testMailgunConfig() config.MailgunConfig {
	return config.MailgunConfig{
		APIBase:   "https://api.mailgun.example",
		APIDomain: "mg.example.com",
		APIKey:    "key-test",
		Sender:    "feedback@mg.example.com",
		Recipient: "inbox@example.com",
	}
}

func newTestEnv(secret string, mailgunCfg config.MailgunConfig) *testEnv {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	feedback := newMemFeedbackRepo()
	uploads := &memUploadRepo{}
	events := &capturePublisher{}
	sender := &captureSender{}

	feedbackCfg := testFeedbackConfig()
	authCfg := config.AuthConfig{SenderAuthToken: secret}
	caretakerCfg := config.CaretakerConfig{KeepHistoryDays: 30, RepublishAfterHours: 24, ReapDraftsAfterMins: 5}

	uploadService := service.NewUploadService(feedback, uploads, feedbackCfg, logger)
	commentService := service.NewCommentService(feedback, events, feedbackCfg, logger)
	caretakerService := service.NewCaretakerService(feedback, events, caretakerCfg, logger)
	deliveryService := service.NewDeliveryService(feedback, uploads, sender, mailgunCfg, logger)

	app := fiber.New(fiber.Config{BodyLimit: feedbackCfg.MaxUploadSize + 64*1024})
	apihttp.RegisterMiddlewares(app, logger, metrics, 0)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health:    handlers.NewHealthHandler("feedback-service", "test", nil, nil),
		Upload:    handlers.NewUploadHandler(uploadService, authCfg),
		Comment:   handlers.NewCommentHandler(commentService, authCfg),
		Caretaker: handlers.NewCaretakerHandler(caretakerService),
		Delivery:  handlers.NewDeliveryHandler(deliveryService, mailgunCfg),
	})

	return &testEnv{app: app, feedback: feedback, uploads: uploads, events: events, sender: sender}
}
