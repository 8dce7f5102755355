package chat

import "time"

// Group is a chat group backing a group- room.
type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Membership links an account to a group.
type Membership struct {
	GroupID   string
	AccountID string
	JoinedAt  time.Time
}
