package orders

import "github.com/shopspring/decimal"

// PriceQuantity is one (unit price, quantity) pair fed to ComputeTotal.
type PriceQuantity struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// ComputeTotal sums unitPrice*quantity over pairs using exact decimal
// arithmetic and rounds the final sum (not each term) to two places.
func ComputeTotal(pairs []PriceQuantity) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range pairs {
		if p.Quantity < 0 {
			return decimal.Zero, &Error{Kind: KindInvalidQuantity, Detail: "quantity must not be negative"}
		}
		total = total.Add(p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	return RoundMoney(total), nil
}
