package orders

import "errors"

var (
	// ErrEmptyCart means the buyer has no open cart, or the open cart has
	// no items (or lost a race to another checkout).
	ErrEmptyCart = errors.New("no open cart with items to check out")
	// ErrInvalidState rejects an operation the order's current status does
	// not allow, e.g. paying a paid order.
	ErrInvalidState = errors.New("operation not valid for current state")
	ErrNotFound     = errors.New("order not found")
	// ErrUnknownMethod rejects a payment method id with no reference row.
	ErrUnknownMethod = errors.New("unknown payment method")
)
