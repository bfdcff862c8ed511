package orders

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fractional digits kept for prices and totals.
const MoneyPlaces = 2

// RoundMoney quantizes d to two fractional digits, ties away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MoneyString renders d with exactly two fractional digits, as stored in NUMERIC(12,2) columns.
func MoneyString(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// ToFloat2 converts d to float64 for JSON responses.
func ToFloat2(d decimal.Decimal) float64 {
	return RoundMoney(d).InexactFloat64()
}
