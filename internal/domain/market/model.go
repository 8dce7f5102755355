package market

import "time"

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderOpen     OrderStatus = "open"
	OrderFilled   OrderStatus = "filled"
	OrderCanceled OrderStatus = "canceled"
)

// Order is a resting market order. Monetary fields are decimal strings.
type Order struct {
	ID            string
	AccountID     string
	Side          Side
	BaseCurrency  string
	QuoteCurrency string
	Amount        string
	Price         string
	Total         string
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Trade is an executed match between two orders.
type Trade struct {
	ID            string
	BuyerID       string
	SellerID      string
	BaseCurrency  string
	QuoteCurrency string
	Amount        string
	Price         string
	Total         string
	CreatedAt     time.Time
}
