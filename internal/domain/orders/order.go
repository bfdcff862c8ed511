package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one priced, quantified reference to a product within an order.
// UnitPrice is captured when the line is resolved, never joined live from the catalog.
type Line struct {
	ID        int64 // DB PK; zero before persistence
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns UnitPrice*Quantity without rounding.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a customer request for one or more catalog items.
type Order struct {
	ID        int64
	Status    Status
	Total     decimal.Decimal
	CreatedAt time.Time
	Lines     []Line
}

// Pairs converts lines into ComputeTotal input.
func Pairs(lines []Line) []PriceQuantity {
	out := make([]PriceQuantity, len(lines))
	for i, l := range lines {
		out[i] = PriceQuantity{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return out
}

// RecomputeTotal sets Total from the current line set.
func (order *Order) RecomputeTotal() error {
	total, err := ComputeTotal(Pairs(order.Lines))
	if err != nil {
		return err
	}
	order.Total = total
	return nil
}
