package orderworker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"git.platform.alem.school/amibragim/buildflow/internal/app/orderservice"
	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/domain/products"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/contracts"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/sqlite"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/storetest"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	uow      ports.UnitOfWork
	products ports.ProductRepository
	orders   ports.OrderRepository
	hammer   products.Product // 10.50
	wrench   products.Product // 5.00
	log      *logger.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.OpenInMemory("worker-" + uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db))

	f := &fixture{
		uow:      sqlite.NewUnitOfWork(db),
		products: sqlite.NewProductsRepo(),
		orders:   sqlite.NewOrdersRepo(),
		log:      logger.New("test", io.Discard, slog.LevelError),
	}
	f.hammer = storetest.SeedProduct(t, f.uow, f.products, "Martelo", "10.50")
	f.wrench = storetest.SeedProduct(t, f.uow, f.products, "Chave", "5.00")
	return f
}

func (f *fixture) processor() *Processor {
	return NewProcessor(f.uow, f.products, f.orders, f.log)
}

// pendingOrder stores an order the way the API does and returns its message.
func (f *fixture) pendingOrder(t *testing.T, items ...contracts.ItemPayload) (int64, contracts.OrderMessage) {
	t.Helper()
	order := &orders.Order{Status: orders.StatusPending, Total: decimal.Zero}
	require.NoError(t, f.uow.WithinTx(context.Background(), func(ctx context.Context) error {
		return f.orders.Create(ctx, order)
	}))
	return order.ID, contracts.NewOrderMessage(order.ID, items)
}

func (f *fixture) load(t *testing.T, id int64) *orders.Order {
	t.Helper()
	var order *orders.Order
	require.NoError(t, f.uow.WithinTx(context.Background(), func(ctx context.Context) (err error) {
		order, err = f.orders.GetByID(ctx, id)
		return err
	}))
	return order
}

func TestProcess_PendingBecomesCreated(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t,
		contracts.NewItemPayload(f.hammer.ID, 2),
		contracts.NewItemPayload(f.wrench.ID, 3),
	)

	outcome, err := f.processor().Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	order := f.load(t, id)
	assert.Equal(t, orders.StatusCreated, order.Status)
	assert.Equal(t, "36.00", orders.MoneyString(order.Total))
	require.Len(t, order.Lines, 2)
	assert.Equal(t, f.hammer.ID, order.Lines[0].ProductID)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.Equal(t, "10.50", orders.MoneyString(order.Lines[0].UnitPrice))
	assert.Equal(t, f.wrench.ID, order.Lines[1].ProductID)
	assert.Equal(t, 3, order.Lines[1].Quantity)
}

func TestProcess_RedeliveryIsInert(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t, contracts.NewItemPayload(f.hammer.ID, 1))
	p := f.processor()

	outcome, err := p.Process(context.Background(), msg)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	before := f.load(t, id)

	outcome, err = p.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	after := f.load(t, id)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, orders.MoneyString(before.Total), orders.MoneyString(after.Total))
	require.Len(t, after.Lines, 1)
	assert.Equal(t, before.Lines[0].ID, after.Lines[0].ID, "lines must not be rewritten")
}

func TestProcess_MissingProductCancels(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t,
		contracts.NewItemPayload(f.hammer.ID, 1),
		contracts.NewItemPayload(9999, 1),
	)

	outcome, err := f.processor().Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)

	order := f.load(t, id)
	assert.Equal(t, orders.StatusCancelled, order.Status)
	assert.Empty(t, order.Lines)

	// terminal: a redelivery changes nothing
	outcome, err = f.processor().Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}

func TestProcess_InvalidItemCancels(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t, contracts.ItemPayload{ProductID: json.RawMessage("1"), Quantity: json.RawMessage("0")})

	outcome, err := f.processor().Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)
	assert.Equal(t, orders.StatusCancelled, f.load(t, id).Status)
}

func TestProcess_EmptyItemsCreatesZeroTotal(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t)

	outcome, err := f.processor().Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "0.00", orders.MoneyString(f.load(t, id).Total))
}

func TestProcess_UnknownOrMalformed(t *testing.T) {
	f := newFixture(t)
	p := f.processor()

	outcome, err := p.Process(context.Background(), contracts.NewOrderMessage(4242, nil))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)

	outcome, err = p.Process(context.Background(), contracts.OrderMessage{OrderID: json.RawMessage(`"abc"`)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)

	outcome, err = p.Process(context.Background(), contracts.OrderMessage{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
}

func TestProcess_NotPendingIsSkipped(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t, contracts.NewItemPayload(f.hammer.ID, 1))
	require.NoError(t, f.uow.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := f.orders.UpdateStatusCAS(ctx, id, orders.StatusPending, orders.StatusProcessing)
		return err
	}))

	outcome, err := f.processor().Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, orders.StatusProcessing, f.load(t, id).Status)
}

func TestProcess_IgnoresCancellation(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t, contracts.NewItemPayload(f.wrench.ID, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := f.processor().Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, orders.StatusCreated, f.load(t, id).Status)
}

// brokenLines fails every ReplaceOrderLines call.
type brokenLines struct {
	ports.OrderRepository
}

func (brokenLines) ReplaceOrderLines(context.Context, int64, []orders.Line) error {
	return orders.StoreFailure("replace lines", errors.New("disk I/O error"))
}

func TestProcess_CompensationFailureLeavesProcessing(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t, contracts.NewItemPayload(f.hammer.ID, 1))

	p := NewProcessor(f.uow, f.products, brokenLines{f.orders}, f.log)
	outcome, err := p.Process(context.Background(), msg)
	require.ErrorIs(t, err, ErrCompensationFailed)
	assert.Equal(t, OutcomeFailed, outcome)

	order := f.load(t, id)
	assert.Equal(t, orders.StatusProcessing, order.Status, "known gap: stuck order is reported, not repaired")
}

// flakyStore fails status updates or lookups while the flags are set.
type flakyStore struct {
	ports.OrderRepository
	failClaim bool
	failLoad  bool
}

func (s *flakyStore) UpdateStatusCAS(ctx context.Context, id int64, expected, next orders.Status) (bool, error) {
	if s.failClaim {
		return false, orders.StoreFailure("update status", errors.New("connection reset"))
	}
	return s.OrderRepository.UpdateStatusCAS(ctx, id, expected, next)
}

func (s *flakyStore) GetByID(ctx context.Context, id int64) (*orders.Order, error) {
	if s.failLoad {
		return nil, orders.StoreFailure("get order", errors.New("connection reset"))
	}
	return s.OrderRepository.GetByID(ctx, id)
}

func TestProcess_ClaimFailureKeepsOrderRetryable(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t, contracts.NewItemPayload(f.hammer.ID, 2))
	store := &flakyStore{OrderRepository: f.orders, failClaim: true}
	p := NewProcessor(f.uow, f.products, store, f.log)

	outcome, err := p.Process(context.Background(), msg)
	require.ErrorIs(t, err, ErrRetry)
	assert.Equal(t, OutcomeRetry, outcome)
	assert.Equal(t, orders.StatusPending, f.load(t, id).Status)

	// the requeued message finishes the order once the store is back
	store.failClaim = false
	outcome, err = p.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	order := f.load(t, id)
	assert.Equal(t, orders.StatusCreated, order.Status)
	assert.Equal(t, "21.00", orders.MoneyString(order.Total))
}

func TestProcess_LoadFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	id, msg := f.pendingOrder(t, contracts.NewItemPayload(f.wrench.ID, 1))
	p := NewProcessor(f.uow, f.products, &flakyStore{OrderRepository: f.orders, failLoad: true}, f.log)

	outcome, err := p.Process(context.Background(), msg)
	require.ErrorIs(t, err, ErrRetry)
	assert.Equal(t, OutcomeRetry, outcome)
	assert.Equal(t, orders.StatusPending, f.load(t, id).Status)
}

// capturePublisher keeps every message the order service would enqueue.
type capturePublisher struct {
	bodies [][]byte
}

func (c *capturePublisher) PublishOrder(_ context.Context, orderID int64, items []contracts.ItemPayload) error {
	body, err := json.Marshal(contracts.NewOrderMessage(orderID, items))
	if err != nil {
		return err
	}
	c.bodies = append(c.bodies, body)
	return nil
}

func TestPlacedOrderIsFinalizedByWorker(t *testing.T) {
	f := newFixture(t)
	pub := &capturePublisher{}
	svc := orderservice.New(f.uow, f.products, f.orders, pub, f.log)

	placed, err := svc.PlaceOrder(context.Background(), []contracts.ItemPayload{
		contracts.NewItemPayload(f.hammer.ID, 2),
		contracts.NewItemPayload(f.wrench.ID, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, placed.Status)
	assert.Equal(t, "36.00", orders.MoneyString(placed.Total))
	require.Len(t, pub.bodies, 1)

	var msg contracts.OrderMessage
	require.NoError(t, json.Unmarshal(pub.bodies[0], &msg))

	outcome, err := f.processor().Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	order := f.load(t, placed.ID)
	assert.Equal(t, orders.StatusCreated, order.Status)
	assert.Equal(t, "36.00", orders.MoneyString(order.Total))
	require.Len(t, order.Lines, 2)
	assert.Equal(t, f.hammer.ID, order.Lines[0].ProductID)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.Equal(t, f.wrench.ID, order.Lines[1].ProductID)
	assert.Equal(t, 3, order.Lines[1].Quantity)
}
