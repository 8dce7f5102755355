package memory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
	"github.com/cambio-network/exchange_layer/internal/domain/balance"
	"github.com/cambio-network/exchange_layer/internal/domain/chat"
	"github.com/cambio-network/exchange_layer/internal/domain/transfer"
)

func TestAccountLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	acct, err := store.CreateAccount(ctx, account.Account{DisplayName: "Alice", Role: account.RoleUser, Active: true})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if acct.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := store.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.DisplayName != "Alice" {
		t.Fatalf("unexpected display name %q", got.DisplayName)
	}

	got.Active = false
	if _, err := store.UpdateAccount(ctx, got); err != nil {
		t.Fatalf("update account: %v", err)
	}
	updated, _ := store.GetAccount(ctx, acct.ID)
	if updated.Active {
		t.Fatal("deactivation not persisted")
	}

	if _, err := store.GetAccount(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for missing account, got %v", err)
	}
}

func TestBalanceUpsert(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.UpsertBalance(ctx, balance.Balance{AccountID: "a1", Currency: "USD", Amount: "10.00"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.UpsertBalance(ctx, balance.Balance{AccountID: "a1", Currency: "USD", Amount: "25.50"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	bal, err := store.GetBalance(ctx, "a1", "USD")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Amount != "25.50" {
		t.Fatalf("expected 25.50, got %s", bal.Amount)
	}

	if _, err := store.UpsertBalance(ctx, balance.Balance{Currency: "USD"}); err == nil {
		t.Fatal("expected error for missing account id")
	}
}

func TestTransferStatusTransitions(t *testing.T) {
	store := New()
	ctx := context.Background()

	tr, err := store.CreateTransfer(ctx, transfer.Transfer{
		Kind:           transfer.KindCity,
		SenderID:       "a1",
		Amount:         "100.00",
		Currency:       "EUR",
		TargetOfficeID: "office-2",
		Code:           "XJ42",
		Status:         transfer.StatusPending,
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	tr.Status = transfer.StatusCompleted
	if _, err := store.UpdateTransfer(ctx, tr); err != nil {
		t.Fatalf("update transfer: %v", err)
	}

	got, _ := store.GetTransfer(ctx, tr.ID)
	if got.Status != transfer.StatusCompleted {
		t.Fatalf("status not updated: %s", got.Status)
	}

	list, err := store.ListTransfers(ctx, "a1")
	if err != nil {
		t.Fatalf("list transfers: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(list))
	}
}

func TestGroupMembership(t *testing.T) {
	store := New()
	ctx := context.Background()

	g, err := store.CreateGroup(ctx, chat.Group{Name: "traders"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := store.AddMember(ctx, g.ID, "a1"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	ok, err := store.IsMember(ctx, g.ID, "a1")
	if err != nil || !ok {
		t.Fatalf("expected membership, ok=%v err=%v", ok, err)
	}

	if err := store.RemoveMember(ctx, g.ID, "a1"); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	ok, _ = store.IsMember(ctx, g.ID, "a1")
	if ok {
		t.Fatal("membership not removed")
	}

	if ok, _ := store.IsMember(ctx, "missing", "a1"); ok {
		t.Fatal("membership in unknown group")
	}
}
