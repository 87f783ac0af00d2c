package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod struct {
	ID   int64  `json:"method_id"`
	Name string `json:"method_name"`
}

type Payment struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	MethodID      int64           `json:"method_id"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	PaidAt        time.Time       `json:"paid_at"`
}
