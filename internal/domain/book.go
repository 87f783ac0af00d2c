package domain

import "github.com/shopspring/decimal"

type Book struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	ShopID      int64           `json:"shop_id"`
	Name        string          `json:"name"`
	ISBN        string          `json:"isbn"`
	Author      string          `json:"author"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
