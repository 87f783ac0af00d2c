package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusInitiated OrderStatus = "initiated"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
)

// Order status only ever moves forward.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusInitiated: 0,
	OrderStatusPaid:      1,
	OrderStatusShipped:   2,
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to == from+1
}

func (s OrderStatus) String() string {
	return string(s)
}

// PlatformFeeRate is the 5% surcharge added to every order subtotal.
var PlatformFeeRate = decimal.NewFromFloat(0.05)

type OrderItem struct {
	ID        string          `json:"id"`
	BookID    int64           `json:"book_id"`
	ShopID    int64           `json:"shop_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Order struct {
	ID              string          `json:"id"`
	BuyerID         int64           `json:"buyer_id"`
	CartID          string          `json:"cart_id"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	DeliveryAddress string          `json:"delivery_address"`
	OrderDate       time.Time       `json:"order_date"`
}

// Totals computes the platform fee and grand total for a subtotal,
// both rounded to cents.
func Totals(subtotal decimal.Decimal) (fee, total decimal.Decimal) {
	fee = subtotal.Mul(PlatformFeeRate).Round(2)
	total = subtotal.Add(fee)
	return fee, total
}

// NewOrderFromCart snapshots the open cart's lines into an immutable order.
// Prices and shop references are copied as they stand at checkout time.
func NewOrderFromCart(buyerID int64, cartID, address string, lines []CartLine) *Order {
	subtotal := decimal.Zero
	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, OrderItem{
			BookID:    line.BookID,
			ShopID:    line.ShopID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	_, total := Totals(subtotal)
	return &Order{
		BuyerID:         buyerID,
		CartID:          cartID,
		Items:           items,
		Subtotal:        subtotal,
		Total:           total,
		Status:          OrderStatusInitiated,
		DeliveryAddress: address,
		OrderDate:       time.Now().UTC(),
	}
}
