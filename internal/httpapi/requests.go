package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cambio-network/exchange_layer/internal/domain/request"
	"github.com/cambio-network/exchange_layer/internal/domain/settings"
	"github.com/cambio-network/exchange_layer/internal/httputil"
)

// CreateRequestInput is the body for POST /topups and POST /withdrawals.
type CreateRequestInput struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// UpdateRequestStatusInput is the body for POST /requests/{id}/status.
type UpdateRequestStatusInput struct {
	Status string `json:"status"`
}

// UpsertSettingInput is the body for PUT /settings.
type UpsertSettingInput struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// RequestRecord is the wire shape of a topup/withdrawal request.
type RequestRecord struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SettingRecord is the wire shape of a settings entry.
type SettingRecord struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func requestRecord(req request.Request) RequestRecord {
	return RequestRecord{
		ID:        req.ID,
		AccountID: req.AccountID,
		Type:      string(req.Type),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    string(req.Status),
		CreatedAt: req.CreatedAt,
	}
}

func (a *API) handleCreateTopup(w http.ResponseWriter, r *http.Request) {
	a.createRequest(w, r, request.TypeTopup)
}

func (a *API) handleCreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	a.createRequest(w, r, request.TypeWithdraw)
}

func (a *API) createRequest(w http.ResponseWriter, r *http.Request, kind request.Type) {
	accountID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var input CreateRequestInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	if input.Amount == "" || input.Currency == "" {
		httputil.BadRequest(w, "amount and currency required")
		return
	}

	now := time.Now().UTC()
	req, err := a.store.CreateRequest(r.Context(), request.Request{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      kind,
		Amount:    input.Amount,
		Currency:  strings.ToUpper(input.Currency),
		Status:    request.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("create request")
		httputil.InternalError(w, "")
		return
	}

	switch kind {
	case request.TypeTopup:
		a.events.TopupCreated(req)
	case request.TypeWithdraw:
		a.events.WithdrawCreated(req)
	}
	httputil.WriteJSON(w, http.StatusCreated, requestRecord(req))
}

func (a *API) handleUpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var input UpdateRequestStatusInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	status := request.Status(input.Status)
	if status != request.StatusApproved && status != request.StatusRejected {
		httputil.BadRequest(w, "status must be approved or rejected")
		return
	}

	req, err := a.store.GetRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, "request not found")
			return
		}
		a.logger.WithContext(r.Context()).WithError(err).Error("load request")
		httputil.InternalError(w, "")
		return
	}
	if req.Status != request.StatusPending {
		httputil.BadRequest(w, "request already resolved")
		return
	}

	req.Status = status
	req.UpdatedAt = time.Now().UTC()
	req, err = a.store.UpdateRequest(r.Context(), req)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("update request status")
		httputil.InternalError(w, "")
		return
	}

	a.events.RequestStatusUpdated(req)
	httputil.WriteJSON(w, http.StatusOK, requestRecord(req))
}

func (a *API) handleListRequests(w http.ResponseWriter, r *http.Request) {
	accountID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	requests, err := a.store.ListRequests(r.Context(), accountID)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("list requests")
		httputil.InternalError(w, "")
		return
	}

	result := make([]RequestRecord, 0, len(requests))
	for _, req := range requests {
		result = append(result, requestRecord(req))
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (a *API) handleUpsertSetting(w http.ResponseWriter, r *http.Request) {
	var input UpsertSettingInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	input.Type = strings.TrimSpace(input.Type)
	if input.Type == "" {
		httputil.BadRequest(w, "type required")
		return
	}

	entry, err := a.store.UpsertSetting(r.Context(), settings.Entry{
		Type:      input.Type,
		Data:      input.Data,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("upsert setting")
		httputil.InternalError(w, "")
		return
	}

	a.events.SettingsUpdated(entry)
	httputil.WriteJSON(w, http.StatusOK, SettingRecord{
		Type:      entry.Type,
		Data:      entry.Data,
		UpdatedAt: entry.UpdatedAt,
	})
}

func (a *API) handleListSettings(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.ListSettings(r.Context())
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("list settings")
		httputil.InternalError(w, "")
		return
	}

	result := make([]SettingRecord, 0, len(entries))
	for _, entry := range entries {
		result = append(result, SettingRecord{
			Type:      entry.Type,
			Data:      entry.Data,
			UpdatedAt: entry.UpdatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
