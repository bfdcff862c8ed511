// Package storetest holds the behaviour every store adapter must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/domain/products"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store bundles one adapter's implementations of the ports.
type Store struct {
	UoW      ports.UnitOfWork
	Products ports.ProductRepository
	Orders   ports.OrderRepository
}

// Run exercises s against the repository contract. It only relies on rows it
// inserts itself, so it is safe against a shared database.
func Run(t *testing.T, s Store) {
	t.Run("products", func(t *testing.T) { testProducts(t, s) })
	t.Run("orders", func(t *testing.T) { testOrders(t, s) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, s) })
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func inTx(t *testing.T, s Store, fn func(ctx context.Context) error) {
	t.Helper()
	require.NoError(t, s.UoW.WithinTx(context.Background(), fn))
}

// SeedProduct inserts one product and returns it with its id set.
func SeedProduct(t *testing.T, uow ports.UnitOfWork, repo ports.ProductRepository, name, unitPrice string) products.Product {
	t.Helper()
	p := products.Product{Name: name, Price: price(unitPrice), Stock: 10}
	require.NoError(t, uow.WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.Insert(ctx, &p)
	}))
	require.NotZero(t, p.ID)
	return p
}

func testProducts(t *testing.T, s Store) {
	var before int
	inTx(t, s, func(ctx context.Context) (err error) {
		before, err = s.Products.Count(ctx)
		return err
	})

	a := SeedProduct(t, s.UoW, s.Products, "Martelo", "10.50")
	b := SeedProduct(t, s.UoW, s.Products, "Chave", "5.00")
	SeedProduct(t, s.UoW, s.Products, "Trena", "0.99")

	inTx(t, s, func(ctx context.Context) error {
		n, err := s.Products.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+3, n)

		got, err := s.Products.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Martelo", got.Name)
		assert.Equal(t, "10.50", orders.MoneyString(got.Price))
		assert.Equal(t, 10, got.Stock)
		assert.False(t, got.CreatedAt.IsZero())

		page, err := s.Products.List(ctx, before, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, a.ID, page[0].ID)
		assert.Equal(t, b.ID, page[1].ID)

		_, err = s.Products.GetByID(ctx, a.ID+1_000_000)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		return nil
	})
}

func testOrders(t *testing.T, s Store) {
	p1 := SeedProduct(t, s.UoW, s.Products, "Broca", "10.50")
	p2 := SeedProduct(t, s.UoW, s.Products, "Lixa", "5.00")

	order := &orders.Order{
		Status: orders.StatusPending,
		Total:  price("21.00"),
		Lines:  []orders.Line{{ProductID: p1.ID, Quantity: 2, UnitPrice: p1.Price}},
	}
	inTx(t, s, func(ctx context.Context) error { return s.Orders.Create(ctx, order) })
	require.NotZero(t, order.ID)
	assert.Equal(t, order.ID, order.Lines[0].OrderID)
	assert.NotZero(t, order.Lines[0].ID)

	inTx(t, s, func(ctx context.Context) error {
		got, err := s.Orders.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusPending, got.Status)
		assert.Equal(t, "21.00", orders.MoneyString(got.Total))
		require.Len(t, got.Lines, 1)
		assert.Equal(t, "10.50", orders.MoneyString(got.Lines[0].UnitPrice))

		ok, err := s.Orders.UpdateStatusCAS(ctx, order.ID, orders.StatusPending, orders.StatusProcessing)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Orders.UpdateStatusCAS(ctx, order.ID, orders.StatusPending, orders.StatusProcessing)
		require.NoError(t, err)
		assert.False(t, ok, "CAS must not apply twice")

		lines := []orders.Line{
			{ProductID: p1.ID, Quantity: 2, UnitPrice: p1.Price},
			{ProductID: p2.ID, Quantity: 3, UnitPrice: p2.Price},
		}
		require.NoError(t, s.Orders.ReplaceOrderLines(ctx, order.ID, lines))

		ok, err = s.Orders.CommitMutation(ctx, order.ID, price("36.00"), orders.StatusPending, orders.StatusCreated)
		require.NoError(t, err)
		assert.False(t, ok, "wrong expected status")

		ok, err = s.Orders.CommitMutation(ctx, order.ID, price("36.00"), orders.StatusProcessing, orders.StatusCreated)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})

	inTx(t, s, func(ctx context.Context) error {
		got, err := s.Orders.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCreated, got.Status)
		assert.Equal(t, "36.00", orders.MoneyString(got.Total))
		require.Len(t, got.Lines, 2)
		assert.Equal(t, p2.ID, got.Lines[1].ProductID)
		assert.Equal(t, 3, got.Lines[1].Quantity)

		require.NoError(t, s.Orders.Delete(ctx, order.ID))
		_, err = s.Orders.GetByID(ctx, order.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		return nil
	})
}

func testRollback(t *testing.T, s Store) {
	boom := errors.New("boom")
	var id int64

	err := s.UoW.WithinTx(context.Background(), func(ctx context.Context) error {
		o := &orders.Order{Status: orders.StatusPending, Total: decimal.Zero}
		if err := s.Orders.Create(ctx, o); err != nil {
			return err
		}
		id = o.ID
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NotZero(t, id)

	inTx(t, s, func(ctx context.Context) error {
		_, err := s.Orders.GetByID(ctx, id)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		return nil
	})

	assert.Panics(t, func() {
		_ = s.UoW.WithinTx(context.Background(), func(ctx context.Context) error {
			panic("kaboom")
		})
	})

	// the connection must be usable after the panic rolled back
	inTx(t, s, func(ctx context.Context) error {
		_, err := s.Products.Count(ctx)
		return err
	})
}
