package transfer

import "time"

// Kind distinguishes the three transfer flows the platform supports.
type Kind string

const (
	KindInternal      Kind = "internal"
	KindCity          Kind = "city"
	KindInternational Kind = "international"
)

// Status is the transfer lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Transfer covers all three flows. ReceiverID is set for internal transfers,
// TargetOfficeID and the pickup Code for city transfers, Country for
// international ones.
type Transfer struct {
	ID             string
	Kind           Kind
	SenderID       string
	ReceiverID     string
	Amount         string
	Currency       string
	SourceOfficeID string
	TargetOfficeID string
	Country        string
	Code           string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
