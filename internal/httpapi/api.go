// Package httpapi provides the REST surface that feeds the realtime layer.
// Handlers persist through the store first and publish events only after the
// write succeeds, so a client that reconnects and refetches always sees at
// least the state its events described.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cambio-network/exchange_layer/internal/httputil"
	"github.com/cambio-network/exchange_layer/internal/logging"
	"github.com/cambio-network/exchange_layer/internal/middleware"
	"github.com/cambio-network/exchange_layer/internal/realtime"
	"github.com/cambio-network/exchange_layer/internal/storage"
)

// API exposes the gateway's REST handlers.
type API struct {
	store  storage.Store
	hub    *realtime.Hub
	events *realtime.Broadcaster
	logger *logging.Logger
}

// New creates the REST surface on top of the given store and hub.
func New(store storage.Store, hub *realtime.Hub, logger *logging.Logger) *API {
	return &API{
		store:  store,
		hub:    hub,
		events: hub.Broadcaster(),
		logger: logger,
	}
}

// RegisterRoutes attaches every handler to the router. The router is expected
// to already carry the auth middleware; admin-only routes add a role check on
// top.
func (a *API) RegisterRoutes(r *mux.Router) {
	adminOnly := middleware.RequireRole("admin")
	staffOnly := middleware.RequireRole("admin", "agent")

	// Transfers
	r.Handle("/transfers/internal", http.HandlerFunc(a.handleCreateInternalTransfer)).Methods(http.MethodPost)
	r.Handle("/transfers/city", http.HandlerFunc(a.handleCreateCityTransfer)).Methods(http.MethodPost)
	r.Handle("/transfers/city/{id}/complete", staffOnly(http.HandlerFunc(a.handleCompleteCityTransfer))).Methods(http.MethodPost)
	r.Handle("/transfers/international", http.HandlerFunc(a.handleCreateInternationalTransfer)).Methods(http.MethodPost)
	r.Handle("/transfers/international/{id}/complete", staffOnly(http.HandlerFunc(a.handleCompleteInternationalTransfer))).Methods(http.MethodPost)
	r.Handle("/transfers", http.HandlerFunc(a.handleListTransfers)).Methods(http.MethodGet)

	// Market
	r.Handle("/orders", http.HandlerFunc(a.handleCreateOrder)).Methods(http.MethodPost)
	r.Handle("/orders", http.HandlerFunc(a.handleListOrders)).Methods(http.MethodGet)
	r.Handle("/orders/{id}/cancel", http.HandlerFunc(a.handleCancelOrder)).Methods(http.MethodPost)
	r.Handle("/trades", adminOnly(http.HandlerFunc(a.handleCreateTrade))).Methods(http.MethodPost)
	r.Handle("/trades", http.HandlerFunc(a.handleListTrades)).Methods(http.MethodGet)

	// Balances
	r.Handle("/balances", adminOnly(http.HandlerFunc(a.handleUpsertBalance))).Methods(http.MethodPut)
	r.Handle("/balances", http.HandlerFunc(a.handleListBalances)).Methods(http.MethodGet)

	// Notifications
	r.Handle("/notifications", adminOnly(http.HandlerFunc(a.handleCreateNotification))).Methods(http.MethodPost)
	r.Handle("/notifications", http.HandlerFunc(a.handleListNotifications)).Methods(http.MethodGet)

	// Topup and withdrawal requests
	r.Handle("/topups", http.HandlerFunc(a.handleCreateTopup)).Methods(http.MethodPost)
	r.Handle("/withdrawals", http.HandlerFunc(a.handleCreateWithdrawal)).Methods(http.MethodPost)
	r.Handle("/requests", http.HandlerFunc(a.handleListRequests)).Methods(http.MethodGet)
	r.Handle("/requests/{id}/status", adminOnly(http.HandlerFunc(a.handleUpdateRequestStatus))).Methods(http.MethodPost)

	// Settings
	r.Handle("/settings", adminOnly(http.HandlerFunc(a.handleUpsertSetting))).Methods(http.MethodPut)
	r.Handle("/settings", adminOnly(http.HandlerFunc(a.handleListSettings))).Methods(http.MethodGet)

	// Operational
	r.Handle("/stats", adminOnly(http.HandlerFunc(a.handleStats))).Methods(http.MethodGet)
}

// HandleHealth reports liveness; it is mounted outside the auth middleware.
func (a *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	rooms, connections := a.hub.Stats()
	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"rooms":       rooms,
		"connections": connections,
	})
}
