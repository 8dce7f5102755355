package realtime

import (
	"sync"

	"github.com/cambio-network/exchange_layer/internal/logging"
	"github.com/cambio-network/exchange_layer/internal/metrics"
)

// Registry owns the room-membership state. It is the only component that
// mutates it; the broadcaster and reconciler read through MembersOf/RoomsOf.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]*Client // room -> connection id -> client
	joined  map[string]map[string]bool    // connection id -> room set
	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logging.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		rooms:   make(map[string]map[string]*Client),
		joined:  make(map[string]map[string]bool),
		log:     log,
		metrics: m,
	}
}

// Join adds the client to a room unconditionally. This is the trusted path
// used for auto-joins and business-logic joins (group chat membership); it is
// never driven directly by a client frame.
func (r *Registry) Join(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinLocked(c, room)
}

// JoinAll joins the client to each room.
func (r *Registry) JoinAll(c *Client, rooms []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range rooms {
		r.joinLocked(c, room)
	}
}

func (r *Registry) joinLocked(c *Client, room string) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		r.rooms[room] = members
	}
	members[c.id] = c

	set, ok := r.joined[c.id]
	if !ok {
		set = make(map[string]bool)
		r.joined[c.id] = set
	}
	set[room] = true

	if r.metrics != nil {
		r.metrics.SetRoomCount(len(r.rooms))
	}
}

// Subscribe applies the authorization predicate before joining. A denied
// subscribe is silent towards the client: logged, counted, no state change.
func (r *Registry) Subscribe(c *Client, room string) bool {
	id := c.Identity()
	if id == nil || !canSubscribe(id, room) {
		accountID := ""
		if id != nil {
			accountID = id.AccountID
		}
		r.log.WithFields(map[string]interface{}{
			"room":       room,
			"account_id": accountID,
		}).Warn("room subscribe denied")
		if r.metrics != nil {
			r.metrics.SubscribeDenied()
		}
		return false
	}
	r.Join(c, room)
	return true
}

// Leave removes the client from one room. Leaving a room the client is not a
// member of is a no-op.
func (r *Registry) Leave(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, room)
}

func (r *Registry) leaveLocked(c *Client, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if set, ok := r.joined[c.id]; ok {
		delete(set, room)
	}
	if r.metrics != nil {
		r.metrics.SetRoomCount(len(r.rooms))
	}
}

// Drop removes the client from every room and forgets it. It returns the
// group rooms the client was a member of at teardown time, for the
// reconciler.
func (r *Registry) Drop(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var groupRooms []string
	for room := range r.joined[c.id] {
		if IsGroupRoom(room) {
			groupRooms = append(groupRooms, room)
		}
		if members, ok := r.rooms[room]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.joined, c.id)

	if r.metrics != nil {
		r.metrics.SetRoomCount(len(r.rooms))
	}
	return groupRooms
}

// MembersOf returns the clients currently in a room. The slice is a copy;
// callers may iterate without holding the registry lock.
func (r *Registry) MembersOf(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// RoomsOf returns the rooms the client is currently a member of.
func (r *Registry) RoomsOf(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.joined[c.id]
	out := make([]string, 0, len(set))
	for room := range set {
		out = append(out, room)
	}
	return out
}

// InRoom reports whether the client is a member of the room.
func (r *Registry) InRoom(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.joined[c.id][room]
}

// Connections returns every registered client. Used for the global
// settings.updated broadcast and the stats endpoint.
func (r *Registry) Connections() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]*Client)
	for _, members := range r.rooms {
		for id, c := range members {
			seen[id] = c
		}
	}
	out := make([]*Client, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	return out
}

// Stats returns the current room and connection counts.
func (r *Registry) Stats() (rooms, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.joined)
}
