package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

func testFeedbackConfig() config.FeedbackConfig {
	return config.FeedbackConfig{
		MaxPendingSubmits: 5,
		MaxUploads:        10,
		MaxUploadSize:     1 << 20,
	}
}

func newUploadFixture() (*UploadService, *fakeFeedbackRepo, *fakeUploadRepo) {
	feedback := newFakeFeedbackRepo()
	uploads := newFakeUploadRepo()
	svc := NewUploadService(feedback, uploads, testFeedbackConfig(), zap.NewNop())
	return svc, feedback, uploads
}

func TestUploadIngest_FirstUploadCreatesDraft(t *testing.T) {
	svc, feedback, uploads := newUploadFixture()

	token, err := svc.Ingest(context.Background(), UploadInput{
		Email:    "user@example.com",
		Filename: "photo.png",
		ClientIP: "203.0.113.9",
		Data:     bytes.Repeat([]byte("x"), 512),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if token == "" {
		t.Fatal("expected a correlation token")
	}

	rec := feedback.get(token)
	if rec == nil {
		t.Fatal("draft record not created")
	}
	if !rec.HasUploads {
		t.Error("expected hasUploads=true")
	}
	if !rec.Draft() {
		t.Error("expected a draft record")
	}
	if rec.ClientIP != "203.0.113.9" {
		t.Errorf("client ip = %q", rec.ClientIP)
	}

	children, _ := uploads.ListByFeedback(context.Background(), token)
	if len(children) != 1 {
		t.Fatalf("expected 1 upload child, got %d", len(children))
	}
	if children[0].ContentLength != 512 {
		t.Errorf("content length = %d", children[0].ContentLength)
	}
	if children[0].Ignored {
		t.Error("upload should not be ignored")
	}
}

func TestUploadIngest_TokenEchoedOnFollowUps(t *testing.T) {
	svc, _, uploads := newUploadFixture()
	ctx := context.Background()

	token, err := svc.Ingest(ctx, UploadInput{Email: "user@example.com", Filename: "a.txt", Data: []byte("a")})
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}

	echoed, err := svc.Ingest(ctx, UploadInput{Email: "user@example.com", Filename: "b.txt", Token: token, Data: []byte("b")})
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if echoed != token {
		t.Errorf("token changed: %q != %q", echoed, token)
	}

	children, _ := uploads.ListByFeedback(ctx, token)
	if len(children) != 2 {
		t.Fatalf("expected 2 upload children, got %d", len(children))
	}
}

func TestUploadIngest_QuotaExceeded(t *testing.T) {
	svc, feedback, _ := newUploadFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Ingest(ctx, UploadInput{
			Email:    "busy@example.com",
			Filename: fmt.Sprintf("f%d.txt", i),
			Data:     []byte("data"),
		}); err != nil {
			t.Fatalf("Ingest %d: %v", i, err)
		}
	}
	before := feedback.size()

	_, err := svc.Ingest(ctx, UploadInput{Email: "busy@example.com", Filename: "extra.txt", Data: []byte("data")})
	if !apperrors.IsCode(err, "QUOTA_EXCEEDED") {
		t.Fatalf("expected QUOTA_EXCEEDED, got %v", err)
	}
	if feedback.size() != before {
		t.Error("quota failure must not create a record")
	}
}

func TestUploadIngest_UnknownToken(t *testing.T) {
	svc, _, _ := newUploadFixture()

	_, err := svc.Ingest(context.Background(), UploadInput{
		Email:    "user@example.com",
		Filename: "a.txt",
		Token:    "no-such-record",
		Data:     []byte("a"),
	})
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestUploadIngest_OverLimitUploadIgnoredNotRejected(t *testing.T) {
	svc, _, uploads := newUploadFixture()
	ctx := context.Background()

	token, err := svc.Ingest(ctx, UploadInput{Email: "user@example.com", Filename: "f0.txt", Data: []byte("d")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	for i := 1; i < 10; i++ {
		if _, err := svc.Ingest(ctx, UploadInput{
			Email:    "user@example.com",
			Filename: fmt.Sprintf("f%d.txt", i),
			Token:    token,
			Data:     []byte("d"),
		}); err != nil {
			t.Fatalf("Ingest %d: %v", i, err)
		}
	}

	// The 11th upload must still succeed: the client's upload sequence
	// has to complete so the comment call can follow.
	if _, err := svc.Ingest(ctx, UploadInput{
		Email:    "user@example.com",
		Filename: "f10.txt",
		Token:    token,
		Data:     []byte("real payload"),
	}); err != nil {
		t.Fatalf("over-limit Ingest must not fail: %v", err)
	}

	children, _ := uploads.ListByFeedback(ctx, token)
	if len(children) != 11 {
		t.Fatalf("expected 11 children, got %d", len(children))
	}
	last := children[len(children)-1]
	if !last.Ignored {
		t.Error("over-limit upload should be marked ignored")
	}
	if bytes.Contains(last.Data, []byte("real payload")) {
		t.Error("over-limit payload should be replaced with a placeholder")
	}
	if last.ContentLength != int64(len(last.Data)) {
		t.Error("content length must describe the stored payload")
	}
}

func TestUploadIngest_StoreError(t *testing.T) {
	svc, feedback, _ := newUploadFixture()
	feedback.CountErr = errors.New("connection refused")

	_, err := svc.Ingest(context.Background(), UploadInput{Email: "user@example.com", Filename: "a.txt", Data: []byte("a")})
	if !apperrors.IsCode(err, "STORE_FAILED") {
		t.Fatalf("expected STORE_FAILED, got %v", err)
	}
}
