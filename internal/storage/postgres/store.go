// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
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

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, display_name, role, office_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, acct.ID, acct.DisplayName, acct.Role, nullable(acct.OfficeID), acct.Active, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	acct.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET display_name = $2, role = $3, office_id = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, acct.ID, acct.DisplayName, acct.Role, nullable(acct.OfficeID), acct.Active, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Account{}, sql.ErrNoRows
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, office_id, active, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, role, office_id, active, created_at, updated_at
		FROM accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var (
		acct     account.Account
		officeID sql.NullString
	)
	err := row.Scan(&acct.ID, &acct.DisplayName, &acct.Role, &officeID, &acct.Active, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	acct.OfficeID = officeID.String
	return acct, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- BalanceStore -----------------------------------------------------------

func (s *Store) UpsertBalance(ctx context.Context, bal balance.Balance) (balance.Balance, error) {
	bal.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (account_id, currency, amount, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, currency)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at
	`, bal.AccountID, bal.Currency, bal.Amount, bal.UpdatedAt)
	if err != nil {
		return balance.Balance{}, err
	}
	return bal, nil
}

func (s *Store) GetBalance(ctx context.Context, accountID, currency string) (balance.Balance, error) {
	var bal balance.Balance
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, currency, amount, updated_at
		FROM balances
		WHERE account_id = $1 AND currency = $2
	`, accountID, currency).Scan(&bal.AccountID, &bal.Currency, &bal.Amount, &bal.UpdatedAt)
	if err != nil {
		return balance.Balance{}, err
	}
	return bal, nil
}

func (s *Store) ListBalances(ctx context.Context, accountID string) ([]balance.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, currency, amount, updated_at
		FROM balances
		WHERE account_id = $1
		ORDER BY currency
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []balance.Balance
	for rows.Next() {
		var bal balance.Balance
		if err := rows.Scan(&bal.AccountID, &bal.Currency, &bal.Amount, &bal.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, bal)
	}
	return out, rows.Err()
}

// --- TransferStore ----------------------------------------------------------

func (s *Store) CreateTransfer(ctx context.Context, tr transfer.Transfer) (transfer.Transfer, error) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tr.CreatedAt = now
	tr.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfers
			(id, kind, sender_id, receiver_id, amount, currency, source_office_id, target_office_id, country, code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, tr.ID, tr.Kind, tr.SenderID, nullable(tr.ReceiverID), tr.Amount, tr.Currency,
		nullable(tr.SourceOfficeID), nullable(tr.TargetOfficeID), nullable(tr.Country), nullable(tr.Code),
		tr.Status, tr.CreatedAt, tr.UpdatedAt)
	if err != nil {
		return transfer.Transfer{}, err
	}
	return tr, nil
}

func (s *Store) UpdateTransfer(ctx context.Context, tr transfer.Transfer) (transfer.Transfer, error) {
	tr.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE transfers
		SET status = $2, source_office_id = $3, updated_at = $4
		WHERE id = $1
	`, tr.ID, tr.Status, nullable(tr.SourceOfficeID), tr.UpdatedAt)
	if err != nil {
		return transfer.Transfer{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return transfer.Transfer{}, sql.ErrNoRows
	}
	return tr, nil
}

func (s *Store) GetTransfer(ctx context.Context, id string) (transfer.Transfer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, sender_id, receiver_id, amount, currency, source_office_id, target_office_id, country, code, status, created_at, updated_at
		FROM transfers
		WHERE id = $1
	`, id)
	return scanTransfer(row)
}

func (s *Store) ListTransfers(ctx context.Context, accountID string) ([]transfer.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, sender_id, receiver_id, amount, currency, source_office_id, target_office_id, country, code, status, created_at, updated_at
		FROM transfers
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []transfer.Transfer
	for rows.Next() {
		tr, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func scanTransfer(row rowScanner) (transfer.Transfer, error) {
	var tr transfer.Transfer
	var receiver, srcOffice, tgtOffice, country, code sql.NullString
	err := row.Scan(&tr.ID, &tr.Kind, &tr.SenderID, &receiver, &tr.Amount, &tr.Currency,
		&srcOffice, &tgtOffice, &country, &code, &tr.Status, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return transfer.Transfer{}, err
	}
	tr.ReceiverID = receiver.String
	tr.SourceOfficeID = srcOffice.String
	tr.TargetOfficeID = tgtOffice.String
	tr.Country = country.String
	tr.Code = code.String
	return tr, nil
}

// --- MarketStore ------------------------------------------------------------

func (s *Store) CreateOrder(ctx context.Context, ord market.Order) (market.Order, error) {
	if ord.ID == "" {
		ord.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.UpdatedAt = now
	if ord.Status == "" {
		ord.Status = market.OrderOpen
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, account_id, side, base_currency, quote_currency, amount, price, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, ord.ID, ord.AccountID, ord.Side, ord.BaseCurrency, ord.QuoteCurrency, ord.Amount, ord.Price, ord.Total, ord.Status, ord.CreatedAt, ord.UpdatedAt)
	if err != nil {
		return market.Order{}, err
	}
	return ord, nil
}

func (s *Store) UpdateOrder(ctx context.Context, ord market.Order) (market.Order, error) {
	ord.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET amount = $2, status = $3, updated_at = $4
		WHERE id = $1
	`, ord.ID, ord.Amount, ord.Status, ord.UpdatedAt)
	if err != nil {
		return market.Order{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return market.Order{}, sql.ErrNoRows
	}
	return ord, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (market.Order, error) {
	var ord market.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, side, base_currency, quote_currency, amount, price, total, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&ord.ID, &ord.AccountID, &ord.Side, &ord.BaseCurrency, &ord.QuoteCurrency,
		&ord.Amount, &ord.Price, &ord.Total, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt)
	if err != nil {
		return market.Order{}, err
	}
	return ord, nil
}

func (s *Store) ListOpenOrders(ctx context.Context, baseCurrency, quoteCurrency string) ([]market.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, side, base_currency, quote_currency, amount, price, total, status, created_at, updated_at
		FROM orders
		WHERE status = 'open' AND base_currency = $1 AND quote_currency = $2
		ORDER BY created_at
	`, baseCurrency, quoteCurrency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Order
	for rows.Next() {
		var ord market.Order
		if err := rows.Scan(&ord.ID, &ord.AccountID, &ord.Side, &ord.BaseCurrency, &ord.QuoteCurrency,
			&ord.Amount, &ord.Price, &ord.Total, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, rows.Err()
}

func (s *Store) CreateTrade(ctx context.Context, tr market.Trade) (market.Trade, error) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	tr.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, buyer_id, seller_id, base_currency, quote_currency, amount, price, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, tr.ID, tr.BuyerID, tr.SellerID, tr.BaseCurrency, tr.QuoteCurrency, tr.Amount, tr.Price, tr.Total, tr.CreatedAt)
	if err != nil {
		return market.Trade{}, err
	}
	return tr, nil
}

func (s *Store) ListTrades(ctx context.Context, baseCurrency, quoteCurrency string) ([]market.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, buyer_id, seller_id, base_currency, quote_currency, amount, price, total, created_at
		FROM trades
		WHERE base_currency = $1 AND quote_currency = $2
		ORDER BY created_at
	`, baseCurrency, quoteCurrency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Trade
	for rows.Next() {
		var tr market.Trade
		if err := rows.Scan(&tr.ID, &tr.BuyerID, &tr.SellerID, &tr.BaseCurrency, &tr.QuoteCurrency,
			&tr.Amount, &tr.Price, &tr.Total, &tr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// --- NotificationStore ------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, account_id, title, message, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.AccountID, n.Title, n.Message, n.Type, n.Read, n.CreatedAt)
	if err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, accountID string) ([]notification.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, title, message, type, read, created_at
		FROM notifications
		WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- RequestStore -----------------------------------------------------------

func (s *Store) CreateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = request.StatusPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, account_id, type, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.AccountID, req.Type, req.Amount, req.Currency, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return request.Request{}, err
	}
	return req, nil
}

func (s *Store) UpdateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	req.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE requests
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, req.ID, req.Status, req.UpdatedAt)
	if err != nil {
		return request.Request{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return request.Request{}, sql.ErrNoRows
	}
	return req, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (request.Request, error) {
	var req request.Request
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, type, amount, currency, status, created_at, updated_at
		FROM requests
		WHERE id = $1
	`, id).Scan(&req.ID, &req.AccountID, &req.Type, &req.Amount, &req.Currency, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return request.Request{}, err
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, accountID string) ([]request.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, type, amount, currency, status, created_at, updated_at
		FROM requests
		WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []request.Request
	for rows.Next() {
		var req request.Request
		if err := rows.Scan(&req.ID, &req.AccountID, &req.Type, &req.Amount, &req.Currency, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// --- GroupStore -------------------------------------------------------------

func (s *Store) CreateGroup(ctx context.Context, g chat.Group) (chat.Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (id, name, created_at)
		VALUES ($1, $2, $3)
	`, g.ID, g.Name, g.CreatedAt)
	if err != nil {
		return chat.Group{}, err
	}
	return g, nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (chat.Group, error) {
	var g chat.Group
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM groups WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err != nil {
		return chat.Group{}, err
	}
	return g, nil
}

func (s *Store) AddMember(ctx context.Context, groupID, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, account_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, account_id) DO NOTHING
	`, groupID, accountID, time.Now().UTC())
	return err
}

func (s *Store) RemoveMember(ctx context.Context, groupID, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND account_id = $2
	`, groupID, accountID)
	return err
}

func (s *Store) IsMember(ctx context.Context, groupID, accountID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND account_id = $2)
	`, groupID, accountID).Scan(&exists)
	return exists, err
}

func (s *Store) ListMembers(ctx context.Context, groupID string) ([]chat.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, account_id, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY account_id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Membership
	for rows.Next() {
		var m chat.Membership
		if err := rows.Scan(&m.GroupID, &m.AccountID, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- SettingsStore ----------------------------------------------------------

func (s *Store) UpsertSetting(ctx context.Context, entry settings.Entry) (settings.Entry, error) {
	entry.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(entry.Data)
	if err != nil {
		return settings.Entry{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (type, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (type)
		DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, entry.Type, data, entry.UpdatedAt)
	if err != nil {
		return settings.Entry{}, err
	}
	return entry, nil
}

func (s *Store) GetSetting(ctx context.Context, settingType string) (settings.Entry, error) {
	var (
		entry settings.Entry
		raw   []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT type, data, updated_at FROM settings WHERE type = $1
	`, settingType).Scan(&entry.Type, &raw, &entry.UpdatedAt)
	if err != nil {
		return settings.Entry{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &entry.Data); err != nil {
			return settings.Entry{}, err
		}
	}
	return entry, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]settings.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, data, updated_at FROM settings ORDER BY type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settings.Entry
	for rows.Next() {
		var (
			entry settings.Entry
			raw   []byte
		)
		if err := rows.Scan(&entry.Type, &raw, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &entry.Data); err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
