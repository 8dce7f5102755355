package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cambio-network/exchange_layer/internal/domain/transfer"
	"github.com/cambio-network/exchange_layer/internal/httputil"
)

// CreateInternalTransferInput is the body for POST /transfers/internal.
type CreateInternalTransferInput struct {
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

// CreateCityTransferInput is the body for POST /transfers/city.
type CreateCityTransferInput struct {
	TargetOfficeID string `json:"target_office_id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
}

// CreateInternationalTransferInput is the body for POST /transfers/international.
type CreateInternationalTransferInput struct {
	Country  string `json:"country"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// TransferRecord is the wire shape of a transfer in REST responses.
type TransferRecord struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id,omitempty"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	SourceOfficeID string    `json:"source_office_id,omitempty"`
	TargetOfficeID string    `json:"target_office_id,omitempty"`
	Country        string    `json:"country,omitempty"`
	Code           string    `json:"code,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func transferRecord(tr transfer.Transfer) TransferRecord {
	return TransferRecord{
		ID:             tr.ID,
		Kind:           string(tr.Kind),
		SenderID:       tr.SenderID,
		ReceiverID:     tr.ReceiverID,
		Amount:         tr.Amount,
		Currency:       tr.Currency,
		SourceOfficeID: tr.SourceOfficeID,
		TargetOfficeID: tr.TargetOfficeID,
		Country:        tr.Country,
		Code:           tr.Code,
		Status:         string(tr.Status),
		CreatedAt:      tr.CreatedAt,
	}
}

func (a *API) handleCreateInternalTransfer(w http.ResponseWriter, r *http.Request) {
	senderID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var input CreateInternalTransferInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	input.ReceiverID = strings.TrimSpace(input.ReceiverID)
	if input.ReceiverID == "" || input.Amount == "" || input.Currency == "" {
		httputil.BadRequest(w, "receiver_id, amount and currency required")
		return
	}
	if input.ReceiverID == senderID {
		httputil.BadRequest(w, "cannot transfer to yourself")
		return
	}

	if _, err := a.store.GetAccount(r.Context(), input.ReceiverID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.BadRequest(w, "unknown receiver")
			return
		}
		a.logger.WithContext(r.Context()).WithError(err).Error("load receiver account")
		httputil.InternalError(w, "")
		return
	}

	now := time.Now().UTC()
	tr, err := a.store.CreateTransfer(r.Context(), transfer.Transfer{
		ID:         uuid.NewString(),
		Kind:       transfer.KindInternal,
		SenderID:   senderID,
		ReceiverID: input.ReceiverID,
		Amount:     input.Amount,
		Currency:   input.Currency,
		Status:     transfer.StatusCompleted,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("create internal transfer")
		httputil.InternalError(w, "")
		return
	}

	a.events.InternalTransferCreated(tr)
	httputil.WriteJSON(w, http.StatusCreated, transferRecord(tr))
}

func (a *API) handleCreateCityTransfer(w http.ResponseWriter, r *http.Request) {
	senderID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var input CreateCityTransferInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	input.TargetOfficeID = strings.TrimSpace(input.TargetOfficeID)
	if input.TargetOfficeID == "" || input.Amount == "" || input.Currency == "" {
		httputil.BadRequest(w, "target_office_id, amount and currency required")
		return
	}

	sender, err := a.store.GetAccount(r.Context(), senderID)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("load sender account")
		httputil.InternalError(w, "")
		return
	}

	now := time.Now().UTC()
	tr, err := a.store.CreateTransfer(r.Context(), transfer.Transfer{
		ID:             uuid.NewString(),
		Kind:           transfer.KindCity,
		SenderID:       senderID,
		Amount:         input.Amount,
		Currency:       input.Currency,
		SourceOfficeID: sender.OfficeID,
		TargetOfficeID: input.TargetOfficeID,
		Code:           pickupCode(),
		Status:         transfer.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("create city transfer")
		httputil.InternalError(w, "")
		return
	}

	a.events.CityTransferCreated(tr)
	httputil.WriteJSON(w, http.StatusCreated, transferRecord(tr))
}

func (a *API) handleCreateInternationalTransfer(w http.ResponseWriter, r *http.Request) {
	senderID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var input CreateInternationalTransferInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	input.Country = strings.TrimSpace(input.Country)
	if input.Country == "" || input.Amount == "" || input.Currency == "" {
		httputil.BadRequest(w, "country, amount and currency required")
		return
	}

	now := time.Now().UTC()
	tr, err := a.store.CreateTransfer(r.Context(), transfer.Transfer{
		ID:        uuid.NewString(),
		Kind:      transfer.KindInternational,
		SenderID:  senderID,
		Amount:    input.Amount,
		Currency:  input.Currency,
		Country:   input.Country,
		Code:      pickupCode(),
		Status:    transfer.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("create international transfer")
		httputil.InternalError(w, "")
		return
	}

	a.events.InternationalTransferCreated(tr)
	httputil.WriteJSON(w, http.StatusCreated, transferRecord(tr))
}

func (a *API) handleCompleteCityTransfer(w http.ResponseWriter, r *http.Request) {
	a.completeTransfer(w, r, transfer.KindCity)
}

func (a *API) handleCompleteInternationalTransfer(w http.ResponseWriter, r *http.Request) {
	a.completeTransfer(w, r, transfer.KindInternational)
}

func (a *API) completeTransfer(w http.ResponseWriter, r *http.Request, kind transfer.Kind) {
	id := mux.Vars(r)["id"]

	tr, err := a.store.GetTransfer(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, "transfer not found")
			return
		}
		a.logger.WithContext(r.Context()).WithError(err).Error("load transfer")
		httputil.InternalError(w, "")
		return
	}
	if tr.Kind != kind {
		httputil.NotFound(w, "transfer not found")
		return
	}
	if tr.Status != transfer.StatusPending {
		httputil.BadRequest(w, "transfer is not pending")
		return
	}

	tr.Status = transfer.StatusCompleted
	tr.UpdatedAt = time.Now().UTC()
	tr, err = a.store.UpdateTransfer(r.Context(), tr)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("complete transfer")
		httputil.InternalError(w, "")
		return
	}

	switch kind {
	case transfer.KindCity:
		a.events.CityTransferCompleted(tr)
	case transfer.KindInternational:
		a.events.InternationalTransferCompleted(tr)
	}
	httputil.WriteJSON(w, http.StatusOK, transferRecord(tr))
}

func (a *API) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	accountID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	transfers, err := a.store.ListTransfers(r.Context(), accountID)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("list transfers")
		httputil.InternalError(w, "")
		return
	}

	result := make([]TransferRecord, 0, len(transfers))
	for _, tr := range transfers {
		result = append(result, transferRecord(tr))
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// pickupCode derives a short human-readable code the recipient reads out at
// the counter.
func pickupCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
