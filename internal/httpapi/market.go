package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cambio-network/exchange_layer/internal/domain/market"
	"github.com/cambio-network/exchange_layer/internal/httputil"
)

// CreateOrderInput is the body for POST /orders.
type CreateOrderInput struct {
	Side          string `json:"side"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	Amount        string `json:"amount"`
	Price         string `json:"price"`
	Total         string `json:"total"`
}

// CreateTradeInput is the body for POST /trades.
type CreateTradeInput struct {
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	Amount        string `json:"amount"`
	Price         string `json:"price"`
	Total         string `json:"total"`
}

// OrderRecord is the wire shape of an order in REST responses.
type OrderRecord struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	Side          string    `json:"side"`
	BaseCurrency  string    `json:"base_currency"`
	QuoteCurrency string    `json:"quote_currency"`
	Amount        string    `json:"amount"`
	Price         string    `json:"price"`
	Total         string    `json:"total"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// TradeRecord is the wire shape of a trade in REST responses.
type TradeRecord struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyer_id"`
	SellerID      string    `json:"seller_id"`
	BaseCurrency  string    `json:"base_currency"`
	QuoteCurrency string    `json:"quote_currency"`
	Amount        string    `json:"amount"`
	Price         string    `json:"price"`
	Total         string    `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

func orderRecord(ord market.Order) OrderRecord {
	return OrderRecord{
		ID:            ord.ID,
		AccountID:     ord.AccountID,
		Side:          string(ord.Side),
		BaseCurrency:  ord.BaseCurrency,
		QuoteCurrency: ord.QuoteCurrency,
		Amount:        ord.Amount,
		Price:         ord.Price,
		Total:         ord.Total,
		Status:        string(ord.Status),
		CreatedAt:     ord.CreatedAt,
	}
}

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var input CreateOrderInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	side := market.Side(input.Side)
	if side != market.SideBuy && side != market.SideSell {
		httputil.BadRequest(w, "side must be buy or sell")
		return
	}
	if input.BaseCurrency == "" || input.QuoteCurrency == "" || input.Amount == "" || input.Price == "" {
		httputil.BadRequest(w, "base_currency, quote_currency, amount and price required")
		return
	}

	now := time.Now().UTC()
	ord, err := a.store.CreateOrder(r.Context(), market.Order{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Side:          side,
		BaseCurrency:  strings.ToUpper(input.BaseCurrency),
		QuoteCurrency: strings.ToUpper(input.QuoteCurrency),
		Amount:        input.Amount,
		Price:         input.Price,
		Total:         input.Total,
		Status:        market.OrderOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("create order")
		httputil.InternalError(w, "")
		return
	}

	a.events.OrderCreated(ord)
	httputil.WriteJSON(w, http.StatusCreated, orderRecord(ord))
}

func (a *API) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	ord, err := a.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, "order not found")
			return
		}
		a.logger.WithContext(r.Context()).WithError(err).Error("load order")
		httputil.InternalError(w, "")
		return
	}
	if ord.AccountID != accountID {
		httputil.Forbidden(w, "not your order")
		return
	}
	if ord.Status != market.OrderOpen {
		httputil.BadRequest(w, "order is not open")
		return
	}

	ord.Status = market.OrderCanceled
	ord.UpdatedAt = time.Now().UTC()
	ord, err = a.store.UpdateOrder(r.Context(), ord)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("cancel order")
		httputil.InternalError(w, "")
		return
	}

	a.events.OrderCanceled(ord)
	httputil.WriteJSON(w, http.StatusOK, orderRecord(ord))
}

func (a *API) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var input CreateTradeInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	if input.BuyerID == "" || input.SellerID == "" || input.BaseCurrency == "" || input.QuoteCurrency == "" {
		httputil.BadRequest(w, "buyer_id, seller_id, base_currency and quote_currency required")
		return
	}

	tr, err := a.store.CreateTrade(r.Context(), market.Trade{
		ID:            uuid.NewString(),
		BuyerID:       input.BuyerID,
		SellerID:      input.SellerID,
		BaseCurrency:  strings.ToUpper(input.BaseCurrency),
		QuoteCurrency: strings.ToUpper(input.QuoteCurrency),
		Amount:        input.Amount,
		Price:         input.Price,
		Total:         input.Total,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("create trade")
		httputil.InternalError(w, "")
		return
	}

	a.events.TradeExecuted(tr)
	httputil.WriteJSON(w, http.StatusCreated, TradeRecord{
		ID:            tr.ID,
		BuyerID:       tr.BuyerID,
		SellerID:      tr.SellerID,
		BaseCurrency:  tr.BaseCurrency,
		QuoteCurrency: tr.QuoteCurrency,
		Amount:        tr.Amount,
		Price:         tr.Price,
		Total:         tr.Total,
		CreatedAt:     tr.CreatedAt,
	})
}

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	base := strings.ToUpper(r.URL.Query().Get("base"))
	quote := strings.ToUpper(r.URL.Query().Get("quote"))
	if base == "" || quote == "" {
		httputil.BadRequest(w, "base and quote query parameters required")
		return
	}

	orders, err := a.store.ListOpenOrders(r.Context(), base, quote)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("list orders")
		httputil.InternalError(w, "")
		return
	}

	result := make([]OrderRecord, 0, len(orders))
	for _, ord := range orders {
		result = append(result, orderRecord(ord))
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (a *API) handleListTrades(w http.ResponseWriter, r *http.Request) {
	base := strings.ToUpper(r.URL.Query().Get("base"))
	quote := strings.ToUpper(r.URL.Query().Get("quote"))
	if base == "" || quote == "" {
		httputil.BadRequest(w, "base and quote query parameters required")
		return
	}

	trades, err := a.store.ListTrades(r.Context(), base, quote)
	if err != nil {
		a.logger.WithContext(r.Context()).WithError(err).Error("list trades")
		httputil.InternalError(w, "")
		return
	}

	result := make([]TradeRecord, 0, len(trades))
	for _, tr := range trades {
		result = append(result, TradeRecord{
			ID:            tr.ID,
			BuyerID:       tr.BuyerID,
			SellerID:      tr.SellerID,
			BaseCurrency:  tr.BaseCurrency,
			QuoteCurrency: tr.QuoteCurrency,
			Amount:        tr.Amount,
			Price:         tr.Price,
			Total:         tr.Total,
			CreatedAt:     tr.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
