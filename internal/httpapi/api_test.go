package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
	"github.com/cambio-network/exchange_layer/internal/domain/market"
	"github.com/cambio-network/exchange_layer/internal/domain/request"
	"github.com/cambio-network/exchange_layer/internal/domain/transfer"
	"github.com/cambio-network/exchange_layer/internal/logging"
	"github.com/cambio-network/exchange_layer/internal/metrics"
	"github.com/cambio-network/exchange_layer/internal/realtime"
	"github.com/cambio-network/exchange_layer/internal/storage/memory"
)

func newTestAPI(t *testing.T) (*mux.Router, *memory.Store) {
	t.Helper()

	logger := logging.New("httpapi-test", "error", "json")
	logger.SetOutput(io.Discard)

	store := memory.New()
	hub := realtime.NewHub(realtime.Options{
		JWTSecret: "api-test-secret",
		Accounts:  store,
		Groups:    store,
		Logger:    logger,
		Metrics:   metrics.New(),
	})
	t.Cleanup(hub.Close)

	api := New(store, hub, logger)
	router := mux.NewRouter()
	api.RegisterRoutes(router)
	return router, store
}

func seedAccount(t *testing.T, store *memory.Store, id string, role account.Role) {
	t.Helper()
	_, err := store.CreateAccount(context.Background(), account.Account{
		ID:          id,
		DisplayName: "acct-" + id,
		Role:        role,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
}

// do issues a request with an authenticated context, mirroring what the auth
// middleware would have populated.
func do(t *testing.T, router *mux.Router, method, path, accountID, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	ctx := req.Context()
	if accountID != "" {
		ctx = logging.WithUserID(ctx, accountID)
	}
	if role != "" {
		ctx = context.WithValue(ctx, logging.RoleKey, role)
	}
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateInternalTransfer(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)
	seedAccount(t, store, "99", account.RoleUser)

	rec := do(t, router, http.MethodPost, "/transfers/internal", "42", "user", CreateInternalTransferInput{
		ReceiverID: "99",
		Amount:     "50.00",
		Currency:   "USD",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var out TransferRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Kind != string(transfer.KindInternal) || out.SenderID != "42" || out.ReceiverID != "99" {
		t.Errorf("unexpected record: %+v", out)
	}
	if out.Status != string(transfer.StatusCompleted) {
		t.Errorf("status = %s, want completed", out.Status)
	}

	stored, err := store.GetTransfer(context.Background(), out.ID)
	if err != nil {
		t.Fatalf("transfer not persisted: %v", err)
	}
	if stored.Amount != "50.00" || stored.Currency != "USD" {
		t.Errorf("stored transfer = %+v", stored)
	}
}

func TestCreateInternalTransferRejectsUnknownReceiver(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)

	rec := do(t, router, http.MethodPost, "/transfers/internal", "42", "user", CreateInternalTransferInput{
		ReceiverID: "nope",
		Amount:     "50.00",
		Currency:   "USD",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateInternalTransferRejectsSelf(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)

	rec := do(t, router, http.MethodPost, "/transfers/internal", "42", "user", CreateInternalTransferInput{
		ReceiverID: "42",
		Amount:     "50.00",
		Currency:   "USD",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCityTransferLifecycle(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)

	rec := do(t, router, http.MethodPost, "/transfers/city", "42", "user", CreateCityTransferInput{
		TargetOfficeID: "7",
		Amount:         "200.00",
		Currency:       "EUR",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var created TransferRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != string(transfer.StatusPending) {
		t.Errorf("status = %s, want pending", created.Status)
	}
	if created.Code == "" {
		t.Error("expected a pickup code")
	}

	rec = do(t, router, http.MethodPost, "/transfers/city/"+created.ID+"/complete", "1", "agent", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := store.GetTransfer(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("load transfer: %v", err)
	}
	if stored.Status != transfer.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}

	// A second completion attempt must be rejected.
	rec = do(t, router, http.MethodPost, "/transfers/city/"+created.ID+"/complete", "1", "agent", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("repeat complete status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCompleteCityTransferRequiresStaffRole(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)

	rec := do(t, router, http.MethodPost, "/transfers/city/any/complete", "42", "user", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCancelOrderOwnership(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)
	seedAccount(t, store, "99", account.RoleUser)

	rec := do(t, router, http.MethodPost, "/orders", "42", "user", CreateOrderInput{
		Side:          "buy",
		BaseCurrency:  "usd",
		QuoteCurrency: "mad",
		Amount:        "100",
		Price:         "10.05",
		Total:         "1005.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var ord OrderRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &ord); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ord.BaseCurrency != "USD" || ord.QuoteCurrency != "MAD" {
		t.Errorf("currencies not normalized: %+v", ord)
	}

	rec = do(t, router, http.MethodPost, "/orders/"+ord.ID+"/cancel", "99", "user", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = do(t, router, http.MethodPost, "/orders/"+ord.ID+"/cancel", "42", "user", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner cancel status = %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := store.GetOrder(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != market.OrderCanceled {
		t.Errorf("stored status = %s, want canceled", stored.Status)
	}
}

func TestCreateOrderValidatesSide(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)

	rec := do(t, router, http.MethodPost, "/orders", "42", "user", CreateOrderInput{
		Side:          "short",
		BaseCurrency:  "USD",
		QuoteCurrency: "MAD",
		Amount:        "1",
		Price:         "1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRequestStatusLifecycle(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)

	rec := do(t, router, http.MethodPost, "/topups", "42", "user", CreateRequestInput{
		Amount:   "300.00",
		Currency: "usd",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var req RequestRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &req); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if req.Type != string(request.TypeTopup) || req.Currency != "USD" {
		t.Errorf("unexpected record: %+v", req)
	}

	// Unknown status value rejected.
	rec = do(t, router, http.MethodPost, "/requests/"+req.ID+"/status", "1", "admin", UpdateRequestStatusInput{Status: "maybe"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = do(t, router, http.MethodPost, "/requests/"+req.ID+"/status", "1", "admin", UpdateRequestStatusInput{Status: "approved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d: %s", rec.Code, rec.Body.String())
	}

	// Already resolved.
	rec = do(t, router, http.MethodPost, "/requests/"+req.ID+"/status", "1", "admin", UpdateRequestStatusInput{Status: "rejected"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("re-resolve status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "42", account.RoleUser)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"settings write", http.MethodPut, "/settings", UpsertSettingInput{Type: "commissions"}},
		{"balance write", http.MethodPut, "/balances", UpsertBalanceInput{AccountID: "42", Currency: "USD", Amount: "1"}},
		{"trade write", http.MethodPost, "/trades", CreateTradeInput{BuyerID: "1", SellerID: "2", BaseCurrency: "USD", QuoteCurrency: "MAD"}},
		{"stats read", http.MethodGet, "/stats", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, "42", "user", tt.body)
			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
			}
		})
	}
}

func TestUpsertSettingAsAdmin(t *testing.T) {
	router, store := newTestAPI(t)
	seedAccount(t, store, "1", account.RoleAdmin)

	rec := do(t, router, http.MethodPut, "/settings", "1", "admin", UpsertSettingInput{
		Type: "commissions",
		Data: map[string]interface{}{"internal": "0.5"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	entry, err := store.GetSetting(context.Background(), "commissions")
	if err != nil {
		t.Fatalf("setting not persisted: %v", err)
	}
	if entry.Data["internal"] != "0.5" {
		t.Errorf("stored data = %v", entry.Data)
	}
}

func TestListEndpointsRequireAuth(t *testing.T) {
	router, _ := newTestAPI(t)

	for _, path := range []string{"/transfers", "/balances", "/notifications", "/requests"} {
		rec := do(t, router, http.MethodGet, path, "", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestHealth(t *testing.T) {
	api := &API{}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	api.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); !bytes.Contains([]byte(body), []byte("ok")) {
		t.Errorf("body = %s", body)
	}
}
