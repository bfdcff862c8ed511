package postgres

import (
	"context"
	"fmt"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/domain/products"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductsRepo implements catalog persistence using pgx.
// Prices travel as text so NUMERIC keeps its exact value.
type ProductsRepo struct{}

func NewProductsRepo() ports.ProductRepository {
	return &ProductsRepo{}
}

func (r *ProductsRepo) GetByID(ctx context.Context, id int64) (*products.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT id, nome, preco::text, estoque, created_at
		FROM produtos
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get product %d", id), err)
	}
	return p, nil
}

// List returns products ordered by id.
func (r *ProductsRepo) List(ctx context.Context, offset, limit int) ([]products.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, nome, preco::text, estoque, created_at
		FROM produtos
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
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
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM produtos`).Scan(&n); err != nil {
		return 0, storeErr("count products", err)
	}
	return n, nil
}

func (r *ProductsRepo) Insert(ctx context.Context, p *products.Product) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO produtos (nome, preco, estoque)
		VALUES ($1, $2::text::numeric, $3)
		RETURNING id, created_at
	`, p.Name, orders.MoneyString(p.Price), p.Stock).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return storeErr("insert product", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (*products.Product, error) {
	var (
		p     products.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Stock, &p.CreatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("product %d price %q: %w", p.ID, price, err)
	}
	p.Price = d
	return &p, nil
}
