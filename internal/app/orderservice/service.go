package orderservice

import (
	"context"
	"errors"
	"fmt"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/contracts"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
)

// ErrOrderNotFound is returned by GetOrder for an unknown id.
var ErrOrderNotFound = errors.New("order not found")

// Service accepts orders and serves order lookups.
type Service struct {
	uow       ports.UnitOfWork
	products  ports.ProductRepository
	orders    ports.OrderRepository
	publisher ports.OrderPublisher
	logger    *logger.Logger
}

// New creates a new order Service with the required dependencies.
func New(
	uow ports.UnitOfWork,
	products ports.ProductRepository,
	orderRepo ports.OrderRepository,
	publisher ports.OrderPublisher,
	logger *logger.Logger,
) *Service {
	return &Service{uow: uow, products: products, orders: orderRepo, publisher: publisher, logger: logger}
}

// PlaceOrder resolves items, stores the order as PENDENTE and enqueues it.
// The message is published only after the commit so the worker always finds
// the row. If publishing fails the order is deleted again.
func (service *Service) PlaceOrder(ctx context.Context, items []contracts.ItemPayload) (*orders.Order, error) {
	if len(items) == 0 {
		return nil, &orders.Error{Kind: orders.KindInvalidPayload, Detail: "order must contain at least one item"}
	}

	var order *orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		res, err := ResolveItems(txCtx, service.products, items)
		if err != nil {
			return err
		}

		order = &orders.Order{
			Status: orders.StatusPending,
			Total:  res.Total,
			Lines:  res.Lines,
		}
		if err := service.orders.Create(txCtx, order); err != nil {
			service.logger.Error(ctx, "db_transaction_failed", "failed to create order", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, orders.StoreFailure("place order", err)
	}

	service.logger.Info(ctx, "order_created", "Order stored as PENDENTE", map[string]any{
		"order_id": order.ID,
		"total":    orders.MoneyString(order.Total),
		"items":    len(order.Lines),
	})

	if err := service.publisher.PublishOrder(ctx, order.ID, Payloads(order.Lines)); err != nil {
		service.logger.Error(ctx, "order_publish_failed", fmt.Sprintf("order %d could not be enqueued; removing it", order.ID), err)
		service.discard(ctx, order.ID)
		if orders.KindOf(err) != orders.KindPublishFailure {
			err = &orders.Error{Kind: orders.KindPublishFailure, Err: err}
		}
		return nil, err
	}

	service.logger.Debug(ctx, "order_published", "Order enqueued", map[string]any{"order_id": order.ID})
	return order, nil
}

// discard removes an order that never reached the queue.
func (service *Service) discard(ctx context.Context, id int64) {
	err := service.uow.WithinTx(context.WithoutCancel(ctx), func(txCtx context.Context) error {
		return service.orders.Delete(txCtx, id)
	})
	if err != nil {
		service.logger.Error(ctx, "order_orphaned", fmt.Sprintf("order %d stays PENDENTE without a message", id), err)
	}
}

// GetOrder returns the order with its lines.
func (service *Service) GetOrder(ctx context.Context, id int64) (*orders.Order, error) {
	var order *orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.orders.GetByID(txCtx, id)
		return err
	})
	if errors.Is(err, ports.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, orders.StoreFailure("get order", err)
	}
	return order, nil
}
