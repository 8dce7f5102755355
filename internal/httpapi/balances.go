package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cambio-network/exchange_layer/internal/domain/balance"
	"github.com/cambio-network/exchange_layer/internal/domain/notification"
	"github.com/cambio-network/exchange_layer/internal/httputil"
)

// UpsertBalanceInput is the body for PUT /balances.
type UpsertBalanceInput struct {
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`
	Amount    string `json:"amount"`
}

// CreateNotificationInput is the body for POST /notifications.
type CreateNotificationInput struct {
	AccountID string `json:"account_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

// BalanceRecord is the wire shape of a balance in REST responses.
type BalanceRecord struct {
	AccountID string    `json:"account_id"`
	Currency  string    `json:"currency"`
	Amount    string    `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationRecord is the wire shape of a notification in REST responses.
type NotificationRecord struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *API) handleUpsertBalance(w http.ResponseWriter, r *http.Request) {
	var input UpsertBalanceInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	input.AccountID = strings.TrimSpace(input.AccountID)
	if input.AccountID == "" || input.Currency == "" || input.Amount == "" {
		httputil.BadRequest(w, "account_id, currency and amount required")
		return
	}

	bal, err := a.store.UpsertBalance(r.Context(), balance.Balance{
		AccountID: input.AccountID,
		Currency:  strings.ToUpper(input.Currency),
		Amount:    input.Amount,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("upsert balance")
		httputil.InternalError(w, "")
		return
	}

	a.events.BalanceUpdated(bal)
	httputil.WriteJSON(w, http.StatusOK, BalanceRecord{
		AccountID: bal.AccountID,
		Currency:  bal.Currency,
		Amount:    bal.Amount,
		UpdatedAt: bal.UpdatedAt,
	})
}

func (a *API) handleListBalances(w http.ResponseWriter, r *http.Request) {
	accountID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	balances, err := a.store.ListBalances(r.Context(), accountID)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("list balances")
		httputil.InternalError(w, "")
		return
	}

	result := make([]BalanceRecord, 0, len(balances))
	for _, bal := range balances {
		result = append(result, BalanceRecord{
			AccountID: bal.AccountID,
			Currency:  bal.Currency,
			Amount:    bal.Amount,
			UpdatedAt: bal.UpdatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (a *API) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var input CreateNotificationInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	input.AccountID = strings.TrimSpace(input.AccountID)
	if input.AccountID == "" || input.Title == "" {
		httputil.BadRequest(w, "account_id and title required")
		return
	}

	n, err := a.store.CreateNotification(r.Context(), notification.Notification{
		ID:        uuid.NewString(),
		AccountID: input.AccountID,
		Title:     input.Title,
		Message:   input.Message,
		Type:      input.Type,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("create notification")
		httputil.InternalError(w, "")
		return
	}

	a.events.NotificationCreated(n)
	httputil.WriteJSON(w, http.StatusCreated, NotificationRecord{
		ID:        n.ID,
		AccountID: n.AccountID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	})
}

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	accountID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	notifications, err := a.store.ListNotifications(r.Context(), accountID)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("list notifications")
		httputil.InternalError(w, "")
		return
	}

	result := make([]NotificationRecord, 0, len(notifications))
	for _, n := range notifications {
		result = append(result, NotificationRecord{
			ID:        n.ID,
			AccountID: n.AccountID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
