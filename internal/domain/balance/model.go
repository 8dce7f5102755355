package balance

import "time"

// Balance is one account's holding in a single currency. Amount is a decimal
// string; the gateway never does arithmetic on it.
type Balance struct {
	AccountID string
	Currency  string
	Amount    string
	UpdatedAt time.Time
}
