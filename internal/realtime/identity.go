package realtime

import "github.com/cambio-network/exchange_layer/internal/domain/account"

// Identity is the resolved account a connection authenticated as. It is
// created once by the gatekeeper and never mutated afterwards;
// re-authentication requires a new connection.
type Identity struct {
	AccountID   string
	DisplayName string
	Role        account.Role
	OfficeID    string
}

// autoJoinRooms returns the rooms every connection with this identity is a
// member of for its entire lifetime.
func (id *Identity) autoJoinRooms() []string {
	rooms := []string{UserRoom(id.AccountID), RoleRoom(id.Role)}
	if id.OfficeID != "" {
		rooms = append(rooms, OfficeRoom(id.OfficeID))
	}
	return rooms
}
