package orderworker

import (
	"context"
	"errors"
	"fmt"

	"git.platform.alem.school/amibragim/buildflow/internal/app/orderservice"
	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/contracts"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"github.com/shopspring/decimal"
)

// Outcome tells what one processing attempt did to the order.
type Outcome int

const (
	OutcomeCreated   Outcome = iota + 1 // PROCESSANDO -> CRIADO committed
	OutcomeCancelled                    // mutation failed, order compensated to CANCELADO
	OutcomeSkipped                      // order was not PENDENTE, or another delivery claimed it
	OutcomeNotFound                     // no order with that id
	OutcomeDropped                      // pedido_id unreadable
	OutcomeFailed                       // compensation failed, order left PROCESSANDO
	OutcomeRetry                        // store error while still PENDENTE; safe to redeliver
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFailed:
		return "failed"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Processor drives one order through PENDENTE -> PROCESSANDO -> CRIADO|CANCELADO.
type Processor struct {
	uow      ports.UnitOfWork
	products ports.ProductRepository
	orders   ports.OrderRepository
	logger   *logger.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(uow ports.UnitOfWork, products ports.ProductRepository, orderRepo ports.OrderRepository, logger *logger.Logger) *Processor {
	return &Processor{uow: uow, products: products, orders: orderRepo, logger: logger}
}

// Process handles a single order message end-to-end. It runs to completion
// even if ctx is cancelled, so a shutdown never interrupts a claimed order.
// Redelivering a processed message is a no-op.
func (p *Processor) Process(ctx context.Context, msg contracts.OrderMessage) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)

	orderID, err := msg.OrderIDInt()
	if err != nil {
		p.logger.Error(ctx, "message_dropped", "pedido_id is missing or not an integer", err)
		return OutcomeDropped, nil
	}

	var order *orders.Order
	err = p.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = p.orders.GetByID(txCtx, orderID)
		return err
	})
	if errors.Is(err, ports.ErrNotFound) {
		p.logger.Error(ctx, "order_not_found", fmt.Sprintf("order %d not found for processing", orderID), err)
		return OutcomeNotFound, nil
	}
	if err != nil {
		p.logger.Error(ctx, "db_transaction_failed", fmt.Sprintf("failed to load order %d", orderID), err)
		return OutcomeRetry, fmt.Errorf("order %d: %w: %v", orderID, ErrRetry, err)
	}

	if order.Status != orders.StatusPending {
		p.logger.Info(ctx, "order_skipped", "order is not PENDENTE", map[string]any{"order_id": orderID, "status": order.Status})
		return OutcomeSkipped, nil
	}

	// claim: committed on its own so a concurrent delivery sees PROCESSANDO
	claimed, err := p.advance(ctx, orderID, orders.StatusPending, orders.StatusProcessing)
	if err != nil {
		// the claim rolled back, so the order is untouched
		p.logger.Error(ctx, "db_transaction_failed", fmt.Sprintf("failed to claim order %d", orderID), err)
		return OutcomeRetry, fmt.Errorf("order %d: %w: %v", orderID, ErrRetry, err)
	}
	if !claimed {
		p.logger.Info(ctx, "order_skipped", "order claimed by another delivery", map[string]any{"order_id": orderID})
		return OutcomeSkipped, nil
	}

	total, err := p.mutate(ctx, orderID, msg.Items)
	if err == nil {
		p.logger.Info(ctx, "order_processed", "order CRIADO", map[string]any{"order_id": orderID, "total": orders.MoneyString(total)})
		return OutcomeCreated, nil
	}

	p.logger.Error(ctx, "order_processing_failed", fmt.Sprintf("order %d failed (%s); cancelling", orderID, orders.KindOf(err)), err)
	return p.compensate(ctx, orderID)
}

// mutate replaces the lines and commits CRIADO with the new total atomically.
func (p *Processor) mutate(ctx context.Context, orderID int64, items []contracts.ItemPayload) (total decimal.Decimal, err error) {
	if !orders.CanTransition(orders.StatusProcessing, orders.StatusCreated) {
		return total, fmt.Errorf("transition %s -> %s not allowed", orders.StatusProcessing, orders.StatusCreated)
	}

	err = p.uow.WithinTx(ctx, func(txCtx context.Context) error {
		res, err := orderservice.ResolveItems(txCtx, p.products, items)
		if err != nil {
			return err
		}
		if err := p.orders.ReplaceOrderLines(txCtx, orderID, res.Lines); err != nil {
			return err
		}
		applied, err := p.orders.CommitMutation(txCtx, orderID, res.Total, orders.StatusProcessing, orders.StatusCreated)
		if err != nil {
			return err
		}
		if !applied {
			return ErrLostClaim
		}
		total = res.Total
		return nil
	})
	return total, err
}

// compensate clears the lines and cancels the order in a fresh transaction.
func (p *Processor) compensate(ctx context.Context, orderID int64) (Outcome, error) {
	var applied bool
	err := p.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if err := p.orders.ReplaceOrderLines(txCtx, orderID, nil); err != nil {
			return err
		}
		var err error
		applied, err = p.cas(txCtx, orderID, orders.StatusProcessing, orders.StatusCancelled)
		return err
	})
	if err != nil {
		p.logger.Error(ctx, "order_stuck_processing", fmt.Sprintf("order %d could not be cancelled", orderID), err)
		return OutcomeFailed, fmt.Errorf("order %d: %w: %v", orderID, ErrCompensationFailed, err)
	}
	if !applied {
		p.logger.Info(ctx, "order_skipped", "order left PROCESSANDO before compensation", map[string]any{"order_id": orderID})
		return OutcomeSkipped, nil
	}

	p.logger.Info(ctx, "order_cancelled", "order CANCELADO", map[string]any{"order_id": orderID})
	return OutcomeCancelled, nil
}

// advance runs a single status CAS in its own transaction.
func (p *Processor) advance(ctx context.Context, orderID int64, from, to orders.Status) (bool, error) {
	var applied bool
	err := p.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		applied, err = p.cas(txCtx, orderID, from, to)
		return err
	})
	return applied, err
}

func (p *Processor) cas(ctx context.Context, orderID int64, from, to orders.Status) (bool, error) {
	if !orders.CanTransition(from, to) {
		return false, fmt.Errorf("transition %s -> %s not allowed", from, to)
	}
	return p.orders.UpdateStatusCAS(ctx, orderID, from, to)
}
