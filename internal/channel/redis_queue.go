package channel

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// RedisQueue implements Queue on a Redis list pair: published events go
// to the main list, Fetch moves them to a processing list, Ack removes
// them from it. A message sitting in the processing list after a crash
// is requeued by Recover, which is where the at-least-once redelivery
// comes from.
type RedisQueue struct {
	client     *redis.Client
	queue      string
	processing string
	logger     *zap.Logger
}

// NewRedisQueue constructs the channel adapter on the given list key.
func NewRedisQueue(client *redis.Client, queue string, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{
		client:     client,
		queue:      queue,
		processing: queue + ":processing",
		logger:     logger,
	}
}

// Publish appends the event to the queue.
func (q *RedisQueue) Publish(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.queue, payload).Err(); err != nil {
		return err
	}
	q.logger.Info("published notification event",
		zap.String("action", string(event.Action)),
		zap.String("feedback_id", event.FeedbackID))
	return nil
}

// Fetch blocks up to wait for the next message, moving it to the
// processing list.
func (q *RedisQueue) Fetch(ctx context.Context, wait time.Duration) (*Delivery, error) {
	payload, err := q.client.BRPopLPush(ctx, q.queue, q.processing, wait).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}

	event, err := Decode(payload)
	if err != nil {
		// Malformed payloads cannot be handled by anyone; drop from the
		// processing list so they are not redelivered forever.
		_ = q.client.LRem(ctx, q.processing, 1, payload).Err()
		return nil, err
	}
	return &Delivery{Payload: payload, Event: event}, nil
}

// Ack removes the delivered payload from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, delivery *Delivery) error {
	return q.client.LRem(ctx, q.processing, 1, delivery.Payload).Err()
}

// Recover moves stranded in-flight messages back onto the queue.
func (q *RedisQueue) Recover(ctx context.Context) error {
	requeued := 0
	for {
		err := q.client.RPopLPush(ctx, q.processing, q.queue).Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return err
		}
		requeued++
	}
	if requeued > 0 {
		q.logger.Info("requeued in-flight notification events", zap.Int("count", requeued))
	}
	return nil
}
