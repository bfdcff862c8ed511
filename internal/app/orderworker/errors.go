package orderworker

import "errors"

var (
	// ErrCompensationFailed means an order could not be cancelled after a
	// failed mutation and is left in PROCESSANDO. Operators must fix it by hand.
	ErrCompensationFailed = errors.New("order stuck in PROCESSANDO: compensation failed")

	// ErrLostClaim means the order left PROCESSANDO while this worker held it.
	ErrLostClaim = errors.New("order is no longer PROCESSANDO")

	// ErrRetry means processing stopped before the order left PENDENTE.
	// The message must be requeued, not acked.
	ErrRetry = errors.New("order still PENDENTE, retry later")

	// ErrDeliveriesClosed is returned by Consumer.Run when the broker closes the channel.
	ErrDeliveriesClosed = errors.New("deliveries channel closed")
)
