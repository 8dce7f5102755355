package storage

import (
	"context"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
	"github.com/cambio-network/exchange_layer/internal/domain/balance"
	"github.com/cambio-network/exchange_layer/internal/domain/chat"
	"github.com/cambio-network/exchange_layer/internal/domain/market"
	"github.com/cambio-network/exchange_layer/internal/domain/notification"
	"github.com/cambio-network/exchange_layer/internal/domain/request"
	"github.com/cambio-network/exchange_layer/internal/domain/settings"
	"github.com/cambio-network/exchange_layer/internal/domain/transfer"
)

// AccountStore persists platform accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
}

// BalanceStore persists per-currency balances.
type BalanceStore interface {
	UpsertBalance(ctx context.Context, bal balance.Balance) (balance.Balance, error)
	GetBalance(ctx context.Context, accountID, currency string) (balance.Balance, error)
	ListBalances(ctx context.Context, accountID string) ([]balance.Balance, error)
}

// TransferStore persists transfers of all kinds.
type TransferStore interface {
	CreateTransfer(ctx context.Context, tr transfer.Transfer) (transfer.Transfer, error)
	UpdateTransfer(ctx context.Context, tr transfer.Transfer) (transfer.Transfer, error)
	GetTransfer(ctx context.Context, id string) (transfer.Transfer, error)
	ListTransfers(ctx context.Context, accountID string) ([]transfer.Transfer, error)
}

// MarketStore persists orders and executed trades.
type MarketStore interface {
	CreateOrder(ctx context.Context, ord market.Order) (market.Order, error)
	UpdateOrder(ctx context.Context, ord market.Order) (market.Order, error)
	GetOrder(ctx context.Context, id string) (market.Order, error)
	ListOpenOrders(ctx context.Context, baseCurrency, quoteCurrency string) ([]market.Order, error)

	CreateTrade(ctx context.Context, tr market.Trade) (market.Trade, error)
	ListTrades(ctx context.Context, baseCurrency, quoteCurrency string) ([]market.Trade, error)
}

// NotificationStore persists dashboard notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	ListNotifications(ctx context.Context, accountID string) ([]notification.Notification, error)
}

// RequestStore persists topup and withdrawal requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, req request.Request) (request.Request, error)
	UpdateRequest(ctx context.Context, req request.Request) (request.Request, error)
	GetRequest(ctx context.Context, id string) (request.Request, error)
	ListRequests(ctx context.Context, accountID string) ([]request.Request, error)
}

// GroupStore persists chat groups and their memberships.
type GroupStore interface {
	CreateGroup(ctx context.Context, g chat.Group) (chat.Group, error)
	GetGroup(ctx context.Context, id string) (chat.Group, error)
	AddMember(ctx context.Context, groupID, accountID string) error
	RemoveMember(ctx context.Context, groupID, accountID string) error
	IsMember(ctx context.Context, groupID, accountID string) (bool, error)
	ListMembers(ctx context.Context, groupID string) ([]chat.Membership, error)
}

// SettingsStore persists admin-managed configuration entries.
type SettingsStore interface {
	UpsertSetting(ctx context.Context, entry settings.Entry) (settings.Entry, error)
	GetSetting(ctx context.Context, settingType string) (settings.Entry, error)
	ListSettings(ctx context.Context) ([]settings.Entry, error)
}

// Store aggregates every persistence concern the gateway consumes.
type Store interface {
	AccountStore
	BalanceStore
	TransferStore
	MarketStore
	NotificationStore
	RequestStore
	GroupStore
	SettingsStore
}
