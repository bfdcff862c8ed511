package rabbitmq

import (
	"context"
	"encoding/json"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/contracts"
	"github.com/google/uuid"
)

// confirmPublisher is the part of Client the order publisher needs.
type confirmPublisher interface {
	PublishConfirmed(ctx context.Context, routingKey, messageID string, body []byte) error
}

// OrderPublisher enqueues committed orders for the worker.
type OrderPublisher struct {
	client confirmPublisher
	queue  string
}

func NewOrderPublisher(client *Client) *OrderPublisher {
	return &OrderPublisher{client: client, queue: client.Queue()}
}

// PublishOrder returns only after the broker confirmed the message.
// Every failure is a KindPublishFailure.
func (p *OrderPublisher) PublishOrder(ctx context.Context, orderID int64, items []contracts.ItemPayload) error {
	body, err := json.Marshal(contracts.NewOrderMessage(orderID, items))
	if err != nil {
		return &orders.Error{Kind: orders.KindPublishFailure, Err: err}
	}

	if err := p.client.PublishConfirmed(ctx, p.queue, uuid.NewString(), body); err != nil {
		return &orders.Error{Kind: orders.KindPublishFailure, Err: err}
	}
	return nil
}
