package domain

import "time"

// FeedbackRecord is the aggregate for one end-user feedback submission.
// Its id doubles as the correlation token handed back to the client so
// follow-up upload and comment calls can be tied to the same submission.
type FeedbackRecord struct {
	ID                string
	Email             string
	Name              string
	Subject           string
	Message           string
	ClientIP          string
	HasUploads        bool
	ArchivedAt        *time.Time
	ExternalMessageID string
	CreatedAt         time.Time
}

// Archived reports whether the feedback has already been forwarded by mail.
// Once set, ArchivedAt never reverses.
func (r *FeedbackRecord) Archived() bool {
	return r.ArchivedAt != nil
}

// Draft reports whether the record is still awaiting its comment call.
// An empty message is the draft sentinel.
func (r *FeedbackRecord) Draft() bool {
	return r.Message == ""
}

// UploadRecord is a file attached to a FeedbackRecord.
type UploadRecord struct {
	ID            string
	FeedbackID    string
	Filename      string
	Data          []byte
	ContentLength int64
	Ignored       bool
	CreatedAt     time.Time
}
