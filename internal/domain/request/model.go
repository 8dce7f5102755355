package request

import "time"

// Type distinguishes balance top-ups from withdrawals.
type Type string

const (
	TypeTopup    Type = "topup"
	TypeWithdraw Type = "withdraw"
)

// Status is the request lifecycle state, driven by admin review.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a pending balance mutation awaiting admin action.
type Request struct {
	ID        string
	AccountID string
	Type      Type
	Amount    string
	Currency  string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
