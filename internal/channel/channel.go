package channel

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// ErrEmpty is returned by Fetch when no message arrived within the wait
// window.
var ErrEmpty = errors.New("channel empty")

// Delivery is one message pulled off the channel. Payload is kept so the
// consumer can ack the exact bytes it received.
type Delivery struct {
	Payload []byte
	Event   domain.NotificationEvent
}

// Publisher publishes notification events. Implementations give
// at-least-once semantics at best; consumers must be idempotent.
type Publisher interface {
	Publish(ctx context.Context, event domain.NotificationEvent) error
}

// Queue is the consume side of the channel.
type Queue interface {
	Publisher
	// Fetch blocks up to wait for the next message. Returns ErrEmpty on
	// timeout.
	Fetch(ctx context.Context, wait time.Duration) (*Delivery, error)
	// Ack removes a fetched message from the in-flight set. Unacked
	// messages are redelivered by Recover.
	Ack(ctx context.Context, delivery *Delivery) error
	// Recover requeues messages a crashed consumer left in flight.
	Recover(ctx context.Context) error
}

// Encode serializes an event to its wire form.
func Encode(event domain.NotificationEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Decode parses a wire payload. Unknown actions decode fine; the
// consumer decides whether it owns them.
func Decode(payload []byte) (domain.NotificationEvent, error) {
	var event domain.NotificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.NotificationEvent{}, err
	}
	return event, nil
}
