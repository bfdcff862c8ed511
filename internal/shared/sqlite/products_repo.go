package sqlite

import (
	"context"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/domain/products"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"github.com/shopspring/decimal"
)

type ProductsRepo struct{}

func NewProductsRepo() ports.ProductRepository {
	return &ProductsRepo{}
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *ProductsRepo) GetByID(ctx context.Context, id int64) (*products.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, nome, preco, estoque, created_at
		FROM produtos
		WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get product %d", id), err)
	}
	return p, nil
}

func (r *ProductsRepo) List(ctx context.Context, offset, limit int) ([]products.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, nome, preco, estoque, created_at
		FROM produtos
		ORDER BY id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	defer rows.Close()

	out := []products.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storeErr("scan product", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list products", err)
	}
	return out, nil
}

func (r *ProductsRepo) Count(ctx context.Context) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM produtos`).Scan(&n); err != nil {
		return 0, storeErr("count products", err)
	}
	return n, nil
}

func (r *ProductsRepo) Insert(ctx context.Context, p *products.Product) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO produtos (nome, preco, estoque, created_at)
		VALUES (?, ?, ?, ?)`,
		p.Name, orders.MoneyString(p.Price), p.Stock, formatTime(p.CreatedAt))
	if err != nil {
		return storeErr("insert product", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return storeErr("insert product id", err)
	}
	return nil
}

func scanProduct(row scanner) (*products.Product, error) {
	var (
		p       products.Product
		price   string
		created string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Stock, &created); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("product %d price %q: %w", p.ID, price, err)
	}
	p.Price = d
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &p, nil
}
