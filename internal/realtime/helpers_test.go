package realtime

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
	"github.com/cambio-network/exchange_layer/internal/logging"
	"github.com/cambio-network/exchange_layer/internal/storage/memory"
)

const testSecret = "test-secret"

type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (t *fakeTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	t.frames = append(t.frames, buf)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// received decodes every frame captured so far.
func (t *fakeTransport) received(tb testing.TB) []Frame {
	tb.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Frame, 0, len(t.frames))
	for _, raw := range t.frames {
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			tb.Fatalf("decode frame %q: %v", raw, err)
		}
		out = append(out, f)
	}
	return out
}

// eventsNamed returns the captured frames with the given event name.
func (t *fakeTransport) eventsNamed(tb testing.TB, event string) []Frame {
	tb.Helper()
	var out []Frame
	for _, f := range t.received(tb) {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func testLogger() *logging.Logger {
	log := logging.New("test", "error", "json")
	log.SetOutput(io.Discard)
	return log
}

func newTestHub(t *testing.T, settle time.Duration) (*Hub, *memory.Store) {
	t.Helper()
	store := memory.New()
	hub := NewHub(Options{
		JWTSecret:   testSecret,
		Accounts:    store,
		Groups:      store,
		SettleDelay: settle,
		Logger:      testLogger(),
	})
	return hub, store
}

func seedAccount(t *testing.T, store *memory.Store, id, name string, role account.Role, officeID string, active bool) {
	t.Helper()
	_, err := store.CreateAccount(context.Background(), account.Account{
		ID:          id,
		DisplayName: name,
		Role:        role,
		OfficeID:    officeID,
		Active:      active,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
}

func signToken(t *testing.T, accountID string, expired bool) string {
	t.Helper()
	claims := &Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if expired {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// connect authenticates a fresh fake connection as the given account.
func connect(t *testing.T, hub *Hub, accountID string) (*Client, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	client := NewClient(transport)
	if err := hub.Authenticate(context.Background(), client, signToken(t, accountID, false)); err != nil {
		t.Fatalf("authenticate %s: %v", accountID, err)
	}
	return client, transport
}

func roomSet(rooms []string) map[string]bool {
	out := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		out[r] = true
	}
	return out
}
