package orderservice

import (
	"context"
	"errors"
	"fmt"
	"math"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/contracts"
	"github.com/shopspring/decimal"
)

// Resolution is a validated item list priced against the catalog.
type Resolution struct {
	Lines []orders.Line
	Total decimal.Decimal
}

// ResolveItems validates untrusted items and captures each product's current
// price. It only reads, so running it twice on an unchanged catalog gives the
// same result. ctx must carry a transaction when the repository needs one.
func ResolveItems(ctx context.Context, products ports.ProductRepository, items []contracts.ItemPayload) (Resolution, error) {
	lines := make([]orders.Line, 0, len(items))

	for i, item := range items {
		productID, err := item.ProductIDInt()
		if err != nil {
			return Resolution{}, &orders.Error{Kind: orders.KindInvalidPayload, Detail: fmt.Sprintf("item %d: invalid produto_id", i), Err: err}
		}
		quantity, err := item.QuantityInt()
		if err != nil {
			return Resolution{}, &orders.Error{Kind: orders.KindInvalidPayload, Detail: fmt.Sprintf("item %d: invalid quantidade", i), Err: err}
		}
		if quantity <= 0 || quantity > math.MaxInt32 {
			return Resolution{}, &orders.Error{Kind: orders.KindInvalidQuantity, Detail: fmt.Sprintf("item %d: quantity must be greater than zero", i)}
		}

		product, err := products.GetByID(ctx, productID)
		if errors.Is(err, ports.ErrNotFound) {
			return Resolution{}, orders.ProductNotFound(productID)
		}
		if err != nil {
			return Resolution{}, orders.StoreFailure("resolve product", err)
		}

		lines = append(lines, orders.Line{
			ProductID: product.ID,
			Quantity:  int(quantity),
			UnitPrice: product.Price,
		})
	}

	total, err := orders.ComputeTotal(orders.Pairs(lines))
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Lines: lines, Total: total}, nil
}

// Payloads turns resolved lines back into well-formed queue items.
func Payloads(lines []orders.Line) []contracts.ItemPayload {
	out := make([]contracts.ItemPayload, len(lines))
	for i, l := range lines {
		out[i] = contracts.NewItemPayload(l.ProductID, l.Quantity)
	}
	return out
}
