package orderworker

import (
	"context"
	"encoding/json"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/shared/contracts"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type processor interface {
	Process(ctx context.Context, msg contracts.OrderMessage) (Outcome, error)
}

// DefaultRetryDelay is the pause before a message whose order is still
// PENDENTE goes back to the queue.
const DefaultRetryDelay = time.Second

// Consumer feeds deliveries to the processor one at a time and acks each
// message only after processing returned.
type Consumer struct {
	processor  processor
	logger     *logger.Logger
	retryDelay time.Duration
}

func NewConsumer(p *Processor, logger *logger.Logger) *Consumer {
	return &Consumer{processor: p, logger: logger, retryDelay: DefaultRetryDelay}
}

// Run handles deliveries until ctx is cancelled or the channel closes. A
// message in flight when ctx is cancelled is finished first.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			if ctx.Err() != nil {
				// shutting down: hand it back untouched
				c.requeue(ctx, d)
				return ctx.Err()
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery decodes, processes and acks a single message.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	reqID := d.MessageId
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx = c.logger.WithRequestID(ctx, reqID)

	var msg contracts.OrderMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error(ctx, "message_decode_failed", "Failed to decode OrderMessage; dropping", err)
		c.ack(ctx, d)
		return
	}

	outcome, err := c.processor.Process(ctx, msg)
	if outcome == OutcomeRetry {
		c.logger.Error(ctx, "processing_retry", "Order still PENDENTE after a store error; requeueing", err)
		select {
		case <-ctx.Done():
		case <-time.After(c.retryDelay):
		}
		c.requeue(ctx, d)
		return
	}
	if err != nil {
		c.logger.Error(ctx, "processing_failed", "Processing ended with an error: "+outcome.String(), err)
	} else {
		c.logger.Debug(ctx, "processing_done", "Message processed", map[string]any{"outcome": outcome.String()})
	}
	c.ack(ctx, d)
}

func (c *Consumer) ack(ctx context.Context, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.logger.Error(ctx, "ack_failed", "Failed to ack message", err)
	}
}

func (c *Consumer) requeue(ctx context.Context, d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		c.logger.Error(ctx, "nack_failed", "Failed to requeue message", err)
	}
}
