package channel

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// MemoryQueue is an in-process Queue used by tests and local runs
// without Redis. It mirrors the redelivery behavior of RedisQueue:
// fetched messages stay in flight until acked and Recover requeues them.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  [][]byte
	inFlight [][]byte
	notify   chan struct{}
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{notify: make(chan struct{}, 1)}
}

// Publish appends the event to the queue.
func (q *MemoryQueue) Publish(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.pending = append(q.pending, payload)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Fetch returns the oldest pending message, waiting up to wait for one
// to arrive.
func (q *MemoryQueue) Fetch(ctx context.Context, wait time.Duration) (*Delivery, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		if delivery := q.take(); delivery != nil {
			return delivery, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrEmpty
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) take() *Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	payload := q.pending[0]
	q.pending = q.pending[1:]
	q.inFlight = append(q.inFlight, payload)

	event, err := Decode(payload)
	if err != nil {
		return nil
	}
	return &Delivery{Payload: payload, Event: event}
}

// Ack removes the delivery from the in-flight set.
func (q *MemoryQueue) Ack(ctx context.Context, delivery *Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, payload := range q.inFlight {
		if string(payload) == string(delivery.Payload) {
			q.inFlight = append(q.inFlight[:i], q.inFlight[i+1:]...)
			break
		}
	}
	return nil
}

// Recover requeues unacked messages.
func (q *MemoryQueue) Recover(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, q.inFlight...)
	q.inFlight = nil
	return nil
}

// Len reports pending message count. Test helper.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
