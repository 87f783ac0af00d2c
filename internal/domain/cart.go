package domain

import "github.com/shopspring/decimal"

type CartStatus string

const (
	CartStatusOpen      CartStatus = "open"
	CartStatusCompleted CartStatus = "completed"
)

type Cart struct {
	ID      string     `json:"id"`
	BuyerID int64      `json:"buyer_id"`
	Status  CartStatus `json:"status"`
}

type CartItem struct {
	ID       string `json:"id"`
	CartID   string `json:"cart_id"`
	BookID   int64  `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// CartLine is a cart item joined against the current book row, the view
// checkout snapshots from.
type CartLine struct {
	BookID    int64           `json:"book_id"`
	BookName  string          `json:"book_name"`
	Author    string          `json:"author"`
	ShopID    int64           `json:"shop_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
