package orders

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can branch without type hierarchies.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidPayload
	KindInvalidQuantity
	KindProductNotFound
	KindPublishFailure
	KindStoreFailure
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrInvalidPayload  = errors.New("invalid item payload")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrProductNotFound = errors.New("product not found")
	ErrPublishFailure  = errors.New("order could not be enqueued")
	ErrStoreFailure    = errors.New("store failure")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPayload:
		return "invalid_payload"
	case KindInvalidQuantity:
		return "invalid_quantity"
	case KindProductNotFound:
		return "product_not_found"
	case KindPublishFailure:
		return "publish_failure"
	case KindStoreFailure:
		return "store_failure"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidPayload:
		return ErrInvalidPayload
	case KindInvalidQuantity:
		return ErrInvalidQuantity
	case KindProductNotFound:
		return ErrProductNotFound
	case KindPublishFailure:
		return ErrPublishFailure
	case KindStoreFailure:
		return ErrStoreFailure
	default:
		return nil
	}
}

// Error is a tagged pipeline error.
type Error struct {
	Kind      Kind
	ProductID int64  // set for KindProductNotFound
	Detail    string // human readable, safe to return to clients
	Err       error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		if s := e.Kind.sentinel(); s != nil {
			msg = s.Error()
		} else {
			msg = e.Kind.String()
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	var out []error
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf returns the kind of the first *Error in err's chain, KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ProductNotFound builds a KindProductNotFound error for id.
func ProductNotFound(id int64) error {
	return &Error{Kind: KindProductNotFound, ProductID: id, Detail: fmt.Sprintf("product %d not found", id)}
}

// StoreFailure wraps a storage error unless it is already tagged.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &Error{Kind: KindStoreFailure, Detail: op, Err: err}
}
