package domain

// FeedbackAction identifies why a notification event was published.
type FeedbackAction string

const (
	ActionSubmitted      FeedbackAction = "feedbackSubmitted"
	ActionCaretakerRetry FeedbackAction = "caretakerRetry"
)

// Known reports whether the action is one this service owns. The channel
// may deliver messages published for other consumers.
func (a FeedbackAction) Known() bool {
	return a == ActionSubmitted || a == ActionCaretakerRetry
}

// NotificationEvent announces that a feedback record needs delivery.
// It is transient; only the channel persists it.
type NotificationEvent struct {
	Action     FeedbackAction `json:"feedbackAction"`
	FeedbackID string         `json:"feedbackDocId"`
}
