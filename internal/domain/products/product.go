package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. The order pipeline only reads its price.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal // two fractional digits
	Stock     int
	CreatedAt time.Time
}
