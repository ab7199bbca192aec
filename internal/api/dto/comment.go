package dto

// CommentRequest is the JSON body of a comment call. The shape is fixed
// by the desktop client and mirrors a helpdesk-style request envelope.
type CommentRequest struct {
	Request CommentBody `json:"request"`
}

// CommentBody nests the requester identity, subject and comment.
type CommentBody struct {
	Requester Requester `json:"requester"`
	Subject   string    `json:"subject"`
	Comment   Comment   `json:"comment"`
}

// Requester identifies who is submitting feedback.
type Requester struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Comment holds the message body and any upload tokens collected by
// earlier upload calls. The first token correlates the submission.
type Comment struct {
	Body    string   `json:"body"`
	Uploads []string `json:"uploads"`
}

// FirstUploadToken returns the correlation token, if any.
func (c Comment) FirstUploadToken() string {
	if len(c.Uploads) == 0 {
		return ""
	}
	return c.Uploads[0]
}
