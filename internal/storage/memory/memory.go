// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces, intended for tests and single-node deployments without
// an external database.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
	"github.com/cambio-network/exchange_layer/internal/domain/balance"
	"github.com/cambio-network/exchange_layer/internal/domain/chat"
	"github.com/cambio-network/exchange_layer/internal/domain/market"
	"github.com/cambio-network/exchange_layer/internal/domain/notification"
	"github.com/cambio-network/exchange_layer/internal/domain/request"
	"github.com/cambio-network/exchange_layer/internal/domain/settings"
	"github.com/cambio-network/exchange_layer/internal/domain/transfer"
	"github.com/cambio-network/exchange_layer/internal/storage"
)

// Store keeps everything in maps guarded by one RWMutex.
type Store struct {
	mu            sync.RWMutex
	accounts      map[string]account.Account
	balances      map[string]balance.Balance // key: accountID + "/" + currency
	transfers     map[string]transfer.Transfer
	orders        map[string]market.Order
	trades        map[string]market.Trade
	notifications map[string]notification.Notification
	requests      map[string]request.Request
	groups        map[string]chat.Group
	memberships   map[string]map[string]chat.Membership // groupID -> accountID
	settings      map[string]settings.Entry
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:      make(map[string]account.Account),
		balances:      make(map[string]balance.Balance),
		transfers:     make(map[string]transfer.Transfer),
		orders:        make(map[string]market.Order),
		trades:        make(map[string]market.Trade),
		notifications: make(map[string]notification.Notification),
		requests:      make(map[string]request.Request),
		groups:        make(map[string]chat.Group),
		memberships:   make(map[string]map[string]chat.Membership),
		settings:      make(map[string]settings.Entry),
	}
}

func balanceKey(accountID, currency string) string {
	return accountID + "/" + currency
}

// AccountStore --------------------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = uuid.NewString()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, fmt.Errorf("account %s already exists", acct.ID)
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, sql.ErrNoRows
	}
	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, sql.ErrNoRows
	}
	return acct, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BalanceStore --------------------------------------------------------------

func (s *Store) UpsertBalance(_ context.Context, bal balance.Balance) (balance.Balance, error) {
	if bal.AccountID == "" || bal.Currency == "" {
		return balance.Balance{}, fmt.Errorf("balance requires account id and currency")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bal.UpdatedAt = time.Now().UTC()
	s.balances[balanceKey(bal.AccountID, bal.Currency)] = bal
	return bal, nil
}

func (s *Store) GetBalance(_ context.Context, accountID, currency string) (balance.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal, ok := s.balances[balanceKey(accountID, currency)]
	if !ok {
		return balance.Balance{}, sql.ErrNoRows
	}
	return bal, nil
}

func (s *Store) ListBalances(_ context.Context, accountID string) ([]balance.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []balance.Balance
	for _, bal := range s.balances {
		if bal.AccountID == accountID {
			out = append(out, bal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

// TransferStore -------------------------------------------------------------

func (s *Store) CreateTransfer(_ context.Context, tr transfer.Transfer) (transfer.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tr.CreatedAt = now
	tr.UpdatedAt = now
	s.transfers[tr.ID] = tr
	return tr, nil
}

func (s *Store) UpdateTransfer(_ context.Context, tr transfer.Transfer) (transfer.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.transfers[tr.ID]
	if !ok {
		return transfer.Transfer{}, sql.ErrNoRows
	}
	tr.CreatedAt = original.CreatedAt
	tr.UpdatedAt = time.Now().UTC()
	s.transfers[tr.ID] = tr
	return tr, nil
}

func (s *Store) GetTransfer(_ context.Context, id string) (transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.transfers[id]
	if !ok {
		return transfer.Transfer{}, sql.ErrNoRows
	}
	return tr, nil
}

func (s *Store) ListTransfers(_ context.Context, accountID string) ([]transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []transfer.Transfer
	for _, tr := range s.transfers {
		if tr.SenderID == accountID || tr.ReceiverID == accountID {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MarketStore ---------------------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, ord market.Order) (market.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ord.ID == "" {
		ord.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.UpdatedAt = now
	if ord.Status == "" {
		ord.Status = market.OrderOpen
	}
	s.orders[ord.ID] = ord
	return ord, nil
}

func (s *Store) UpdateOrder(_ context.Context, ord market.Order) (market.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.orders[ord.ID]
	if !ok {
		return market.Order{}, sql.ErrNoRows
	}
	ord.CreatedAt = original.CreatedAt
	ord.UpdatedAt = time.Now().UTC()
	s.orders[ord.ID] = ord
	return ord, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (market.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ord, ok := s.orders[id]
	if !ok {
		return market.Order{}, sql.ErrNoRows
	}
	return ord, nil
}

func (s *Store) ListOpenOrders(_ context.Context, baseCurrency, quoteCurrency string) ([]market.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []market.Order
	for _, ord := range s.orders {
		if ord.Status == market.OrderOpen && ord.BaseCurrency == baseCurrency && ord.QuoteCurrency == quoteCurrency {
			out = append(out, ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateTrade(_ context.Context, tr market.Trade) (market.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	tr.CreatedAt = time.Now().UTC()
	s.trades[tr.ID] = tr
	return tr, nil
}

func (s *Store) ListTrades(_ context.Context, baseCurrency, quoteCurrency string) ([]market.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []market.Trade
	for _, tr := range s.trades {
		if tr.BaseCurrency == baseCurrency && tr.QuoteCurrency == quoteCurrency {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// NotificationStore ---------------------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, accountID string) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []notification.Notification
	for _, n := range s.notifications {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RequestStore --------------------------------------------------------------

func (s *Store) CreateRequest(_ context.Context, req request.Request) (request.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = request.StatusPending
	}
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) UpdateRequest(_ context.Context, req request.Request) (request.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.requests[req.ID]
	if !ok {
		return request.Request{}, sql.ErrNoRows
	}
	req.CreatedAt = original.CreatedAt
	req.UpdatedAt = time.Now().UTC()
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) GetRequest(_ context.Context, id string) (request.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return request.Request{}, sql.ErrNoRows
	}
	return req, nil
}

func (s *Store) ListRequests(_ context.Context, accountID string) ([]request.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []request.Request
	for _, req := range s.requests {
		if req.AccountID == accountID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GroupStore ----------------------------------------------------------------

func (s *Store) CreateGroup(_ context.Context, g chat.Group) (chat.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = time.Now().UTC()
	s.groups[g.ID] = g
	s.memberships[g.ID] = make(map[string]chat.Membership)
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, id string) (chat.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return chat.Group{}, sql.ErrNoRows
	}
	return g, nil
}

func (s *Store) AddMember(_ context.Context, groupID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.memberships[groupID]
	if !ok {
		return sql.ErrNoRows
	}
	members[accountID] = chat.Membership{GroupID: groupID, AccountID: accountID, JoinedAt: time.Now().UTC()}
	return nil
}

func (s *Store) RemoveMember(_ context.Context, groupID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.memberships[groupID]
	if !ok {
		return sql.ErrNoRows
	}
	delete(members, accountID)
	return nil
}

func (s *Store) IsMember(_ context.Context, groupID, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.memberships[groupID]
	if !ok {
		return false, nil
	}
	_, member := members[accountID]
	return member, nil
}

func (s *Store) ListMembers(_ context.Context, groupID string) ([]chat.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.memberships[groupID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := make([]chat.Membership, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// SettingsStore -------------------------------------------------------------

func (s *Store) UpsertSetting(_ context.Context, entry settings.Entry) (settings.Entry, error) {
	if entry.Type == "" {
		return settings.Entry{}, fmt.Errorf("setting requires a type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry.UpdatedAt = time.Now().UTC()
	entry.Data = copyDoc(entry.Data)
	s.settings[entry.Type] = entry
	return entry, nil
}

func (s *Store) GetSetting(_ context.Context, settingType string) (settings.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.settings[settingType]
	if !ok {
		return settings.Entry{}, sql.ErrNoRows
	}
	entry.Data = copyDoc(entry.Data)
	return entry, nil
}

func (s *Store) ListSettings(_ context.Context) ([]settings.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]settings.Entry, 0, len(s.settings))
	for _, entry := range s.settings {
		entry.Data = copyDoc(entry.Data)
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func copyDoc(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
