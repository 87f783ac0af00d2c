package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPaidEvent is published after a payment commits, keyed by order id.
type OrderPaidEvent struct {
	OrderID   string           `json:"order_id"`
	BuyerID   int64            `json:"buyer_id"`
	Items     []OrderItemEvent `json:"items"`
	Total     decimal.Decimal  `json:"total"`
	Timestamp time.Time        `json:"timestamp"`
}

type OrderItemEvent struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}
