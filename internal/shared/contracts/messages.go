package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissing is returned by ParseInt when the field is absent or null.
	ErrMissing = errors.New("field is missing")

	// ErrOutOfRange is returned by ParseInt for integers beyond int64.
	ErrOutOfRange = errors.New("integer out of range")
)

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// ItemPayload is the wire-format for one requested item. Fields stay raw so a
// bad item fails validation on its own instead of breaking the whole message.
type ItemPayload struct {
	ProductID json.RawMessage `json:"produto_id"`
	Quantity  json.RawMessage `json:"quantidade"`
}

// NewItemPayload builds a well-formed item.
func NewItemPayload(productID int64, quantity int) ItemPayload {
	return ItemPayload{
		ProductID: json.RawMessage(strconv.FormatInt(productID, 10)),
		Quantity:  json.RawMessage(strconv.Itoa(quantity)),
	}
}

// ProductIDInt parses produto_id.
func (p ItemPayload) ProductIDInt() (int64, error) { return ParseInt(p.ProductID) }

// QuantityInt parses quantidade.
func (p ItemPayload) QuantityInt() (int64, error) { return ParseInt(p.Quantity) }

// OrderMessage is published to the orders queue after the order is committed as PENDENTE.
type OrderMessage struct {
	OrderID json.RawMessage `json:"pedido_id"`
	Items   []ItemPayload   `json:"itens"`
}

// NewOrderMessage builds the event for orderID.
func NewOrderMessage(orderID int64, items []ItemPayload) OrderMessage {
	if items == nil {
		items = []ItemPayload{}
	}
	return OrderMessage{
		OrderID: json.RawMessage(strconv.FormatInt(orderID, 10)),
		Items:   items,
	}
}

// OrderIDInt parses pedido_id.
func (m OrderMessage) OrderIDInt() (int64, error) { return ParseInt(m.OrderID) }

// ParseInt accepts a JSON integer, an integral JSON number (2.0) or a string
// holding one ("2"). Anything else is rejected.
func ParseInt(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, ErrMissing
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(s)
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, errors.New("not a number: " + text)
	}
	if !d.IsInteger() {
		return 0, errors.New("not an integer: " + text)
	}
	if d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, text)
	}
	return d.IntPart(), nil
}
