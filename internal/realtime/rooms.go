package realtime

import (
	"strings"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
)

// Room name prefixes. Every room key starts with one of these; anything else
// is refused by the subscribe predicate.
const (
	prefixUser    = "user-"
	prefixBalance = "balance-"
	prefixOffice  = "office-"
	prefixMarket  = "market-"
	prefixType    = "type-"
	prefixGroup   = "group-"
	prefixPublic  = "public-"
	prefixAdmin   = "admin-"
	prefixAgent   = "agent-"
)

// UserRoom is the per-account room every connection joins for its lifetime.
func UserRoom(accountID string) string {
	return prefixUser + accountID
}

// BalanceRoom scopes balance updates to one account and currency.
func BalanceRoom(accountID, currency string) string {
	return prefixBalance + accountID + "-" + currency
}

// OfficeRoom is the affiliation room shared by an office's agents.
func OfficeRoom(officeID string) string {
	return prefixOffice + officeID
}

// MarketRoom is the topic room for one currency pair.
func MarketRoom(baseCurrency, quoteCurrency string) string {
	return prefixMarket + baseCurrency + "-" + quoteCurrency
}

// RoleRoom is the role-wide room joined by every connection of a given role.
func RoleRoom(role account.Role) string {
	return prefixType + string(role)
}

// GroupRoom is the room backing one chat group.
func GroupRoom(groupID string) string {
	return prefixGroup + groupID
}

// IsGroupRoom reports whether the room key names a chat group room.
func IsGroupRoom(room string) bool {
	return strings.HasPrefix(room, prefixGroup)
}

// GroupID extracts the group id from a group room key.
func GroupID(room string) string {
	return strings.TrimPrefix(room, prefixGroup)
}

// canSubscribe is the authorization predicate for client-requested room
// subscriptions. Auto-joined rooms (account, role, office) bypass it, as does
// the trusted group-join path: group- is deliberately absent here because
// group membership is a business-logic fact, not something a client may
// self-assert.
func canSubscribe(id *Identity, room string) bool {
	switch {
	case strings.HasPrefix(room, prefixPublic), strings.HasPrefix(room, prefixMarket):
		return true
	case strings.HasPrefix(room, prefixUser):
		return strings.TrimPrefix(room, prefixUser) == id.AccountID
	case strings.HasPrefix(room, prefixBalance):
		rest := strings.TrimPrefix(room, prefixBalance)
		return strings.HasPrefix(rest, id.AccountID+"-")
	case strings.HasPrefix(room, prefixOffice):
		return id.OfficeID != "" && strings.TrimPrefix(room, prefixOffice) == id.OfficeID
	case strings.HasPrefix(room, prefixAdmin):
		return id.Role == account.RoleAdmin
	case strings.HasPrefix(room, prefixAgent):
		return id.Role == account.RoleAgent || id.Role == account.RoleAdmin
	default:
		return false
	}
}
