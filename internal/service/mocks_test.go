package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/mail"
	"github.com/spec-kit/feedback-service/internal/repository"
)

// fakeFeedbackRepo is an in-memory FeedbackRepository. Error fields
// force the corresponding method to fail.
type fakeFeedbackRepo struct {
	mu      sync.Mutex
	records map[string]*domain.FeedbackRecord
	seq     int
	Now     time.Time

	CreateErr   error
	GetErr      error
	CountErr    error
	FinalizeErr error
	ArchiveErr  error
	DeleteErr   error
	ListErr     error
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{
		records: make(map[string]*domain.FeedbackRecord),
		Now:     time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeFeedbackRepo) Create(ctx context.Context, rec *domain.FeedbackRecord) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	rec.ID = fmt.Sprintf("rec-%d", f.seq)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = f.Now
	}
	clone := *rec
	f.records[rec.ID] = &clone
	return nil
}

func (f *fakeFeedbackRepo) GetByID(ctx context.Context, id string) (*domain.FeedbackRecord, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeFeedbackRepo) CountOpenByEmail(ctx context.Context, email string) (int, error) {
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rec := range f.records {
		if rec.Email == email && rec.ArchivedAt == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeFeedbackRepo) Finalize(ctx context.Context, id, subject, message, name string) error {
	if f.FinalizeErr != nil {
		return f.FinalizeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Subject = subject
	rec.Message = message
	rec.Name = name
	return nil
}

func (f *fakeFeedbackRepo) Archive(ctx context.Context, id string, archivedAt time.Time, externalMessageID string) (bool, error) {
	if f.ArchiveErr != nil {
		return false, f.ArchiveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.ArchivedAt != nil {
		return false, nil
	}
	at := archivedAt
	rec.ArchivedAt = &at
	rec.ExternalMessageID = externalMessageID
	return true, nil
}

func (f *fakeFeedbackRepo) Delete(ctx context.Context, id string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

func (f *fakeFeedbackRepo) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	return f.list(func(rec *domain.FeedbackRecord) bool {
		return rec.ArchivedAt != nil && !rec.ArchivedAt.After(cutoff)
	})
}

func (f *fakeFeedbackRepo) ListDraftsCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	return f.list(func(rec *domain.FeedbackRecord) bool {
		return rec.Message == "" && !rec.CreatedAt.After(cutoff)
	})
}

func (f *fakeFeedbackRepo) ListStaleFinalized(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	return f.list(func(rec *domain.FeedbackRecord) bool {
		return rec.ArchivedAt == nil && rec.Message != "" && !rec.CreatedAt.After(cutoff)
	})
}

func (f *fakeFeedbackRepo) ListUnarchivedFinalized(ctx context.Context) ([]domain.FeedbackRecord, error) {
	return f.list(func(rec *domain.FeedbackRecord) bool {
		return rec.ArchivedAt == nil && rec.Message != ""
	})
}

func (f *fakeFeedbackRepo) list(match func(*domain.FeedbackRecord) bool) ([]domain.FeedbackRecord, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.FeedbackRecord
	for _, rec := range f.records {
		if match(rec) {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (f *fakeFeedbackRepo) get(id string) *domain.FeedbackRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

func (f *fakeFeedbackRepo) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeUploadRepo is an in-memory UploadRepository.
type fakeUploadRepo struct {
	mu      sync.Mutex
	uploads []domain.UploadRecord
	seq     int

	CreateErr error
	ListErr   error
	CountErr  error
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{}
}

func (f *fakeUploadRepo) Create(ctx context.Context, upload *domain.UploadRecord) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	upload.ID = fmt.Sprintf("upl-%d", f.seq)
	f.uploads = append(f.uploads, *upload)
	return nil
}

func (f *fakeUploadRepo) ListByFeedback(ctx context.Context, feedbackID string) ([]domain.UploadRecord, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.UploadRecord
	for _, upload := range f.uploads {
		if upload.FeedbackID == feedbackID {
			result = append(result, upload)
		}
	}
	return result, nil
}

func (f *fakeUploadRepo) CountByFeedback(ctx context.Context, feedbackID string) (int, error) {
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	uploads, _ := f.ListByFeedback(ctx, feedbackID)
	return len(uploads), nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu         sync.Mutex
	Events     []domain.NotificationEvent
	PublishErr error
}

func (f *fakePublisher) Publish(ctx context.Context, event domain.NotificationEvent) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, event)
	return nil
}

// fakeSender records sent messages and returns generated message ids.
type fakeSender struct {
	mu      sync.Mutex
	Sent    []mail.Message
	SendErr error
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	if f.SendErr != nil {
		return "", f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, msg)
	return fmt.Sprintf("msg-%d", len(f.Sent)), nil
}
