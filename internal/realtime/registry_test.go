package realtime

import (
	"testing"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
)

func TestSubscribePredicate(t *testing.T) {
	hub, store := newTestHub(t, 0)
	seedAccount(t, store, "5", "Alice", account.RoleUser, "", true)
	seedAccount(t, store, "8", "Bob", account.RoleAgent, "2", true)
	seedAccount(t, store, "9", "Carol", account.RoleAdmin, "", true)

	user, _ := connect(t, hub, "5")
	agent, _ := connect(t, hub, "8")
	admin, _ := connect(t, hub, "9")

	cases := []struct {
		name    string
		client  *Client
		room    string
		allowed bool
	}{
		{"own user room", user, "user-5", true},
		{"other user room", user, "user-8", false},
		{"own balance room", user, "balance-5-USD", true},
		{"other balance room", user, "balance-8-USD", false},
		{"market room", user, "market-USD-EUR", true},
		{"public room", user, "public-announcements", true},
		{"admin room as user", user, "admin-dashboard", false},
		{"admin room as admin", admin, "admin-dashboard", true},
		{"agent room as user", user, "agent-queue", false},
		{"agent room as agent", agent, "agent-queue", true},
		{"agent room as admin", admin, "agent-queue", true},
		{"own office room", agent, "office-2", true},
		{"other office room", agent, "office-9", false},
		{"office room without affiliation", user, "office-2", false},
		{"group room never subscribable", user, "group-1", false},
		{"unknown prefix", user, "internal-queue", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := roomSet(hub.Registry().RoomsOf(tc.client))
			got := hub.Registry().Subscribe(tc.client, tc.room)
			if got != tc.allowed {
				t.Fatalf("subscribe %s: got %v, want %v", tc.room, got, tc.allowed)
			}
			if !tc.allowed {
				after := roomSet(hub.Registry().RoomsOf(tc.client))
				if len(after) != len(before) {
					t.Fatalf("denied subscribe must not change membership: %v -> %v", before, after)
				}
			} else if !hub.Registry().InRoom(tc.client, tc.room) {
				t.Fatalf("allowed subscribe did not join %s", tc.room)
			}
			// Restore state for the next case.
			hub.Registry().Leave(tc.client, tc.room)
		})
	}
}

func TestSubscribeWithoutIdentityRefused(t *testing.T) {
	hub, _ := newTestHub(t, 0)

	client := NewClient(&fakeTransport{})
	if hub.Registry().Subscribe(client, "market-USD-EUR") {
		t.Fatal("unauthenticated connection must not subscribe")
	}
	if rooms := hub.Registry().RoomsOf(client); len(rooms) != 0 {
		t.Fatalf("expected no rooms, got %v", rooms)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	hub, store := newTestHub(t, 0)
	seedAccount(t, store, "5", "Alice", account.RoleUser, "", true)
	client, _ := connect(t, hub, "5")

	// Not a member; must be a silent no-op.
	hub.Registry().Leave(client, "market-USD-EUR")
	hub.Registry().Leave(client, "market-USD-EUR")

	if !hub.Registry().InRoom(client, "user-5") {
		t.Fatal("unrelated membership must survive unsubscribe no-ops")
	}
}

func TestDropReturnsGroupRoomsOnly(t *testing.T) {
	hub, store := newTestHub(t, 0)
	seedAccount(t, store, "5", "Alice", account.RoleUser, "", true)
	client, _ := connect(t, hub, "5")

	hub.Registry().Join(client, "group-7")
	hub.Registry().Join(client, "group-9")
	hub.Registry().Subscribe(client, "market-USD-EUR")

	groups := roomSet(hub.Registry().Drop(client))
	if len(groups) != 2 || !groups["group-7"] || !groups["group-9"] {
		t.Fatalf("expected group rooms only, got %v", groups)
	}
	if rooms := hub.Registry().RoomsOf(client); len(rooms) != 0 {
		t.Fatalf("membership must be fully revoked, got %v", rooms)
	}
}
