package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/channel"
	"github.com/spec-kit/feedback-service/internal/observability"
	"github.com/spec-kit/feedback-service/internal/service"
)

const fetchWait = 5 * time.Second

// DeliveryWorker consumes notification events from the channel and runs
// delivery for each. Every fetched message is acked regardless of the
// delivery outcome: the archived stamp makes duplicate deliveries safe,
// and the caretaker re-triggers records whose send failed.
type DeliveryWorker struct {
	queue    channel.Queue
	delivery *service.DeliveryService
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDeliveryWorker constructs the worker.
func NewDeliveryWorker(queue channel.Queue, delivery *service.DeliveryService, metrics *observability.Metrics, logger *zap.Logger) *DeliveryWorker {
	return &DeliveryWorker{queue: queue, delivery: delivery, metrics: metrics, logger: logger}
}

// Run consumes until the context is cancelled. Messages stranded in
// flight by a previous crash are requeued first.
func (w *DeliveryWorker) Run(ctx context.Context) {
	if err := w.queue.Recover(ctx); err != nil {
		w.logger.Error("channel recover failed", zap.Error(err))
	}

	for {
		if ctx.Err() != nil {
			w.logger.Info("delivery worker stopping")
			return
		}

		delivery, err := w.queue.Fetch(ctx, fetchWait)
		if err != nil {
			if errors.Is(err, channel.ErrEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Error("channel fetch failed", zap.Error(err))
			// Back off so a dead channel does not spin the loop.
			select {
			case <-ctx.Done():
			case <-time.After(fetchWait):
			}
			continue
		}

		w.handle(ctx, delivery)
	}
}

func (w *DeliveryWorker) handle(ctx context.Context, delivery *channel.Delivery) {
	if err := w.delivery.HandleEvent(ctx, delivery.Event); err != nil {
		// Consumed anyway; the caretaker repairs transport failures.
		w.metrics.RecordDelivery("failed")
		w.logger.Error("delivery failed",
			zap.String("action", string(delivery.Event.Action)),
			zap.String("feedback_id", delivery.Event.FeedbackID),
			zap.Error(err))
	} else {
		w.metrics.RecordDelivery("ok")
	}

	if err := w.queue.Ack(ctx, delivery); err != nil {
		w.logger.Error("channel ack failed", zap.Error(err))
	}
}
