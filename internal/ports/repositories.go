package ports

import (
	"context"
	"errors"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/domain/products"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by repository lookups when no row matches.
var ErrNotFound = errors.New("not found")

// UnitOfWork wraps a function in a DB transaction.
// Repositories read the transaction from the ctx passed to fn.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository reads and seeds the catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*products.Product, error)
	List(ctx context.Context, offset, limit int) ([]products.Product, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, p *products.Product) error
}

// OrderRepository coordinates orders + lines.
type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*orders.Order, error)
	// Create inserts the order header and its lines, filling IDs and CreatedAt.
	Create(ctx context.Context, o *orders.Order) error
	UpdateStatusCAS(ctx context.Context, id int64, expected, next orders.Status) (applied bool, err error)
	// ReplaceOrderLines deletes every line of the order and inserts lines.
	ReplaceOrderLines(ctx context.Context, id int64, lines []orders.Line) error
	// CommitMutation sets total and status in one statement, guarded by expected.
	CommitMutation(ctx context.Context, id int64, total decimal.Decimal, expected, next orders.Status) (applied bool, err error)
	Delete(ctx context.Context, id int64) error
}
