package account

import "time"

// Role classifies what a platform account may do.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Account represents a platform user. OfficeID is set for agents affiliated
// with an exchange office and empty otherwise.
type Account struct {
	ID          string
	DisplayName string
	Role        Role
	OfficeID    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
