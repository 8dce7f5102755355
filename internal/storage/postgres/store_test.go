package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
	"github.com/cambio-network/exchange_layer/internal/domain/balance"
	"github.com/cambio-network/exchange_layer/internal/domain/transfer"
	_ "github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestGetAccount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "display_name", "role", "office_id", "active", "created_at", "updated_at"}).
		AddRow("a1", "Alice", "agent", "office-3", true, now, now)
	mock.ExpectQuery(`SELECT id, display_name, role, office_id, active, created_at, updated_at\s+FROM accounts`).
		WithArgs("a1").
		WillReturnRows(rows)

	acct, err := store.GetAccount(context.Background(), "a1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.Role != account.RoleAgent || acct.OfficeID != "office-3" {
		t.Fatalf("unexpected account: %+v", acct)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetAccountMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, display_name, role, office_id, active, created_at, updated_at\s+FROM accounts`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.GetAccount(context.Background(), "missing"); err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestUpsertBalance(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO balances`).
		WithArgs("a1", "USD", "15.75", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	bal, err := store.UpsertBalance(context.Background(), balance.Balance{AccountID: "a1", Currency: "USD", Amount: "15.75"})
	if err != nil {
		t.Fatalf("upsert balance: %v", err)
	}
	if bal.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be stamped")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateTransferNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE transfers`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateTransfer(context.Background(), transfer.Transfer{ID: "t1", Status: transfer.StatusCompleted})
	if err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows for missing transfer, got %v", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()

	acct, err := store.CreateAccount(ctx, account.Account{DisplayName: "itest", Role: account.RoleUser, Active: true})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	if _, err := store.UpsertBalance(ctx, balance.Balance{AccountID: acct.ID, Currency: "USD", Amount: "1.00"}); err != nil {
		t.Fatalf("upsert balance: %v", err)
	}

	tr, err := store.CreateTransfer(ctx, transfer.Transfer{
		Kind:     transfer.KindInternal,
		SenderID: acct.ID,
		Amount:   "1.00",
		Currency: "USD",
		Status:   transfer.StatusPending,
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	tr.Status = transfer.StatusCompleted
	if _, err := store.UpdateTransfer(ctx, tr); err != nil {
		t.Fatalf("update transfer: %v", err)
	}
}
