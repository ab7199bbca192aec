package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// UploadRepository persists upload children of feedback records.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.UploadRecord) error
	ListByFeedback(ctx context.Context, feedbackID string) ([]domain.UploadRecord, error)
	// CountByFeedback counts all children, placeholders included, which
	// is what the per-record attachment cap is checked against.
	CountByFeedback(ctx context.Context, feedbackID string) (int, error)
}

type uploadRepository struct {
	pool *pgxpool.Pool
}

// NewUploadRepository constructs repository.
func NewUploadRepository(pool *pgxpool.Pool) UploadRepository {
	return &uploadRepository{pool: pool}
}

func (r *uploadRepository) Create(ctx context.Context, upload *domain.UploadRecord) error {
	upload.ID = uuid.NewString()
	const query = `
        INSERT INTO upload_records (id, feedback_id, filename, data, content_length, ignored)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		upload.ID,
		upload.FeedbackID,
		upload.Filename,
		upload.Data,
		upload.ContentLength,
		upload.Ignored,
	).Scan(&upload.CreatedAt)
}

func (r *uploadRepository) ListByFeedback(ctx context.Context, feedbackID string) ([]domain.UploadRecord, error) {
	const query = `
        SELECT id, feedback_id, filename, data, content_length, ignored, created_at
        FROM upload_records WHERE feedback_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, feedbackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UploadRecord
	for rows.Next() {
		var upload domain.UploadRecord
		if err := rows.Scan(
			&upload.ID,
			&upload.FeedbackID,
			&upload.Filename,
			&upload.Data,
			&upload.ContentLength,
			&upload.Ignored,
			&upload.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, upload)
	}
	return result, rows.Err()
}

func (r *uploadRepository) CountByFeedback(ctx context.Context, feedbackID string) (int, error) {
	const query = `SELECT COUNT(*) FROM upload_records WHERE feedback_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, feedbackID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
