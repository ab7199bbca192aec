package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// ErrNotFound is returned when a record id does not reference an
// existing row.
var ErrNotFound = errors.New("record not found")

// FeedbackRepository encapsulates feedback record persistence.
type FeedbackRepository interface {
	Create(ctx context.Context, rec *domain.FeedbackRecord) error
	GetByID(ctx context.Context, id string) (*domain.FeedbackRecord, error)
	CountOpenByEmail(ctx context.Context, email string) (int, error)
	Finalize(ctx context.Context, id, subject, message, name string) error
	// Archive stamps archived_at and the transport message id in one
	// update, only if the record is still unarchived. Returns false when
	// another delivery already stamped it.
	Archive(ctx context.Context, id string, archivedAt time.Time, externalMessageID string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error)
	ListDraftsCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error)
	ListStaleFinalized(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error)
	ListUnarchivedFinalized(ctx context.Context) ([]domain.FeedbackRecord, error)
}

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository constructs repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

const feedbackColumns = `id, email, name, subject, message, client_ip, has_uploads, archived_at, external_message_id, created_at`

func (r *feedbackRepository) Create(ctx context.Context, rec *domain.FeedbackRecord) error {
	rec.ID = uuid.NewString()
	const query = `
        INSERT INTO feedback_records (id, email, name, subject, message, client_ip, has_uploads)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.Email,
		rec.Name,
		rec.Subject,
		rec.Message,
		rec.ClientIP,
		rec.HasUploads,
	).Scan(&rec.CreatedAt)
}

func (r *feedbackRepository) GetByID(ctx context.Context, id string) (*domain.FeedbackRecord, error) {
	const query = `SELECT ` + feedbackColumns + ` FROM feedback_records WHERE id=$1`
	var rec domain.FeedbackRecord
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Email,
		&rec.Name,
		&rec.Subject,
		&rec.Message,
		&rec.ClientIP,
		&rec.HasUploads,
		&rec.ArchivedAt,
		&rec.ExternalMessageID,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *feedbackRepository) CountOpenByEmail(ctx context.Context, email string) (int, error) {
	const query = `SELECT COUNT(*) FROM feedback_records WHERE email=$1 AND archived_at IS NULL`
	var count int
	if err := r.pool.QueryRow(ctx, query, email).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *feedbackRepository) Finalize(ctx context.Context, id, subject, message, name string) error {
	const query = `UPDATE feedback_records SET subject=$1, message=$2, name=$3 WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, subject, message, name, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *feedbackRepository) Archive(ctx context.Context, id string, archivedAt time.Time, externalMessageID string) (bool, error) {
	// archived_at IS NULL makes the archive transition one-way even when
	// two deliveries race.
	const query = `
        UPDATE feedback_records SET archived_at=$1, external_message_id=$2
        WHERE id=$3 AND archived_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, archivedAt, externalMessageID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *feedbackRepository) Delete(ctx context.Context, id string) error {
	// upload children go with it via ON DELETE CASCADE
	const query = `DELETE FROM feedback_records WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *feedbackRepository) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	const query = `SELECT ` + feedbackColumns + ` FROM feedback_records
        WHERE archived_at IS NOT NULL AND archived_at <= $1`
	return r.list(ctx, query, cutoff)
}

func (r *feedbackRepository) ListDraftsCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	const query = `SELECT ` + feedbackColumns + ` FROM feedback_records
        WHERE message = '' AND created_at <= $1`
	return r.list(ctx, query, cutoff)
}

func (r *feedbackRepository) ListStaleFinalized(ctx context.Context, cutoff time.Time) ([]domain.FeedbackRecord, error) {
	const query = `SELECT ` + feedbackColumns + ` FROM feedback_records
        WHERE archived_at IS NULL AND message <> '' AND created_at <= $1`
	return r.list(ctx, query, cutoff)
}

func (r *feedbackRepository) ListUnarchivedFinalized(ctx context.Context) ([]domain.FeedbackRecord, error) {
	const query = `SELECT ` + feedbackColumns + ` FROM feedback_records
        WHERE archived_at IS NULL AND message <> ''`
	return r.list(ctx, query)
}

func (r *feedbackRepository) list(ctx context.Context, query string, args ...any) ([]domain.FeedbackRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FeedbackRecord
	for rows.Next() {
		var rec domain.FeedbackRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Email,
			&rec.Name,
			&rec.Subject,
			&rec.Message,
			&rec.ClientIP,
			&rec.HasUploads,
			&rec.ArchivedAt,
			&rec.ExternalMessageID,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
