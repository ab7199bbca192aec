// Package mail defines the outbound email transport used to forward
// feedback, plus its Mailgun implementation.
package mail

import "context"

// Attachment is one file carried by an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a fully composed outbound email.
type Message struct {
	From        string
	To          string
	ReplyTo     string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Sender accepts a message and returns the transport-assigned message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
