package notification

import "time"

// Notification is a per-account message shown in the dashboard bell.
type Notification struct {
	ID        string
	AccountID string
	Title     string
	Message   string
	Type      string
	Read      bool
	CreatedAt time.Time
}
