package postgres

import (
	"context"
	"errors"
	"fmt"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrdersRepo implements persistence for orders using pgx and SQL.
type OrdersRepo struct{}

// NewOrdersRepo constructs a new OrdersRepo.
func NewOrdersRepo() ports.OrderRepository {
	return &OrdersRepo{}
}

// Create inserts the order header and its lines.
func (r *OrdersRepo) Create(ctx context.Context, order *orders.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO pedidos (status, total)
		VALUES ($1, $2::text::numeric)
		RETURNING id, created_at`,
		string(order.Status),
		orders.MoneyString(order.Total),
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return storeErr("insert order", err)
	}

	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		if err := insertLine(ctx, tx, &order.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertLine(ctx context.Context, tx pgx.Tx, line *orders.Line) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO itens_pedido (pedido_id, produto_id, quantidade, preco_unitario)
		VALUES ($1, $2, $3, $4::text::numeric)
		RETURNING id`,
		line.OrderID,
		line.ProductID,
		line.Quantity,
		orders.MoneyString(line.UnitPrice),
	).Scan(&line.ID)
	if err != nil {
		return storeErr("insert order line", err)
	}
	return nil
}

// GetByID retrieves an order with its lines.
func (r *OrdersRepo) GetByID(ctx context.Context, id int64) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		order  orders.Order
		status string
		total  string
	)
	err = tx.QueryRow(ctx, `
		SELECT id, status, total::text, created_at
		FROM pedidos
		WHERE id = $1
	`, id).Scan(&order.ID, &status, &total, &order.CreatedAt)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get order %d", id), err)
	}
	order.Status = orders.Status(status)
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, storeErr("parse order total", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, produto_id, quantidade, preco_unitario::text
		FROM itens_pedido
		WHERE pedido_id = $1
		ORDER BY id
	`, order.ID)
	if err != nil {
		return nil, storeErr("list order lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		line := orders.Line{OrderID: order.ID}
		var price string
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Quantity, &price); err != nil {
			return nil, storeErr("scan order line", err)
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, storeErr("parse line price", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list order lines", err)
	}

	return &order, nil
}

// UpdateStatusCAS updates the order status using a compare-and-swap approach.
func (r *OrdersRepo) UpdateStatusCAS(ctx context.Context, id int64, expected, next orders.Status) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	var updated bool
	err = tx.QueryRow(ctx, `
		UPDATE pedidos
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING true
	`, string(next), id, string(expected)).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("update order status", err)
	}
	return updated, nil
}

// ReplaceOrderLines swaps the full line set of an order.
func (r *OrdersRepo) ReplaceOrderLines(ctx context.Context, id int64, lines []orders.Line) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM itens_pedido WHERE pedido_id = $1`, id); err != nil {
		return storeErr("delete order lines", err)
	}
	for i := range lines {
		lines[i].OrderID = id
		if err := insertLine(ctx, tx, &lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// CommitMutation sets total and status if the order is still in expected.
func (r *OrdersRepo) CommitMutation(ctx context.Context, id int64, total decimal.Decimal, expected, next orders.Status) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	var updated bool
	err = tx.QueryRow(ctx, `
		UPDATE pedidos
		SET status = $1, total = $2::text::numeric
		WHERE id = $3 AND status = $4
		RETURNING true
	`, string(next), orders.MoneyString(total), id, string(expected)).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("commit order mutation", err)
	}
	return updated, nil
}

// Delete removes the order and its lines.
func (r *OrdersRepo) Delete(ctx context.Context, id int64) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM itens_pedido WHERE pedido_id = $1`, id); err != nil {
		return storeErr("delete order lines", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pedidos WHERE id = $1`, id); err != nil {
		return storeErr("delete order", err)
	}
	return nil
}
