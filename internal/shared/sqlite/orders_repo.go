package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"github.com/shopspring/decimal"
)

type OrdersRepo struct{}

func NewOrdersRepo() ports.OrderRepository {
	return &OrdersRepo{}
}

func (r *OrdersRepo) Create(ctx context.Context, order *orders.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO pedidos (status, total, created_at)
		VALUES (?, ?, ?)`,
		string(order.Status), orders.MoneyString(order.Total), formatTime(order.CreatedAt))
	if err != nil {
		return storeErr("insert order", err)
	}
	if order.ID, err = res.LastInsertId(); err != nil {
		return storeErr("insert order id", err)
	}

	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		if err := insertLine(ctx, tx, &order.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertLine(ctx context.Context, tx *sql.Tx, line *orders.Line) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO itens_pedido (pedido_id, produto_id, quantidade, preco_unitario)
		VALUES (?, ?, ?, ?)`,
		line.OrderID, line.ProductID, line.Quantity, orders.MoneyString(line.UnitPrice))
	if err != nil {
		return storeErr("insert order line", err)
	}
	if line.ID, err = res.LastInsertId(); err != nil {
		return storeErr("insert order line id", err)
	}
	return nil
}

func (r *OrdersRepo) GetByID(ctx context.Context, id int64) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var order orders.Order
	var status, total, created string
	err = tx.QueryRowContext(ctx, `
		SELECT id, status, total, created_at
		FROM pedidos
		WHERE id = ?`, id).Scan(&order.ID, &status, &total, &created)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get order %d", id), err)
	}
	order.Status = orders.Status(status)
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, storeErr("parse order total", err)
	}
	if order.CreatedAt, err = parseTime(created); err != nil {
		return nil, storeErr("parse order time", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, produto_id, quantidade, preco_unitario
		FROM itens_pedido
		WHERE pedido_id = ?
		ORDER BY id`, order.ID)
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

func (r *OrdersRepo) UpdateStatusCAS(ctx context.Context, id int64, expected, next orders.Status) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE pedidos SET status = ?
		WHERE id = ? AND status = ?`,
		string(next), id, string(expected))
	if err != nil {
		return false, storeErr("update order status", err)
	}
	return applied(res)
}

func (r *OrdersRepo) ReplaceOrderLines(ctx context.Context, id int64, lines []orders.Line) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM itens_pedido WHERE pedido_id = ?`, id); err != nil {
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

func (r *OrdersRepo) CommitMutation(ctx context.Context, id int64, total decimal.Decimal, expected, next orders.Status) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE pedidos SET status = ?, total = ?
		WHERE id = ? AND status = ?`,
		string(next), orders.MoneyString(total), id, string(expected))
	if err != nil {
		return false, storeErr("commit order mutation", err)
	}
	return applied(res)
}

func (r *OrdersRepo) Delete(ctx context.Context, id int64) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM itens_pedido WHERE pedido_id = ?`, id); err != nil {
		return storeErr("delete order lines", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pedidos WHERE id = ?`, id); err != nil {
		return storeErr("delete order", err)
	}
	return nil
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("rows affected", err)
	}
	return n == 1, nil
}
