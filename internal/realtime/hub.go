package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cambio-network/exchange_layer/internal/logging"
	"github.com/cambio-network/exchange_layer/internal/metrics"
	"github.com/cambio-network/exchange_layer/internal/storage"
)

// Hub wires the gatekeeper, registry, broadcaster and reconciler together
// and dispatches inbound client frames.
type Hub struct {
	gatekeeper  *Gatekeeper
	registry    *Registry
	broadcaster *Broadcaster
	reconciler  *Reconciler
	groups      storage.GroupStore
	log         *logging.Logger
	metrics     *metrics.Metrics
}

// Options configures a Hub.
type Options struct {
	JWTSecret   string
	Accounts    AccountGetter
	Groups      storage.GroupStore
	SettleDelay time.Duration
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
}

// NewHub builds the realtime core.
func NewHub(opts Options) *Hub {
	registry := NewRegistry(opts.Logger, opts.Metrics)
	broadcaster := NewBroadcaster(registry, opts.Logger, opts.Metrics)
	return &Hub{
		gatekeeper:  NewGatekeeper(opts.JWTSecret, opts.Accounts, opts.Logger),
		registry:    registry,
		broadcaster: broadcaster,
		reconciler:  NewReconciler(registry, broadcaster, opts.SettleDelay, opts.Logger, opts.Metrics),
		groups:      opts.Groups,
		log:         opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Broadcaster exposes the typed event API to business code.
func (h *Hub) Broadcaster() *Broadcaster { return h.broadcaster }

// Registry exposes the read-only membership queries; only the stats endpoint
// and tests use it outside this package.
func (h *Hub) Registry() *Registry { return h.registry }

// Authenticate runs the gatekeeper for a connection and, on success, attaches
// the identity and auto-joins the account, role and affiliation rooms. On
// failure the connection stays out of every room and the error is returned
// for the transport layer to surface.
func (h *Hub) Authenticate(ctx context.Context, c *Client, token string) error {
	if c.Identity() != nil {
		// Re-authentication requires a fresh connection.
		return nil
	}

	identity, err := h.gatekeeper.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	c.setIdentity(identity)
	h.registry.JoinAll(c, identity.autoJoinRooms())
	if h.metrics != nil {
		h.metrics.ConnectionOpened()
	}

	h.log.WithFields(map[string]interface{}{
		"account_id":    identity.AccountID,
		"role":          identity.Role,
		"connection_id": c.ID(),
	}).Info("connection joined")

	return c.sendEvent(EventAuthOK, map[string]interface{}{
		"accountId":   identity.AccountID,
		"displayName": identity.DisplayName,
		"role":        identity.Role,
	})
}

// Disconnect tears a connection down: revoke all room membership, then hand
// the group rooms it occupied to the reconciler.
func (h *Hub) Disconnect(c *Client) {
	identity := c.Identity()
	groupRooms := h.registry.Drop(c)

	if identity != nil && h.metrics != nil {
		h.metrics.ConnectionClosed()
	}
	h.reconciler.OnDisconnect(identity, groupRooms)
}

// HandleFrame dispatches one inbound frame. Unauthenticated connections may
// only authenticate; everything else is refused without touching room state.
func (h *Hub) HandleFrame(ctx context.Context, c *Client, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.log.WithError(err).Debug("discarding malformed frame")
		return
	}

	if frame.Event == FrameAuthenticate {
		var data struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(frame.Data, &data)
		if err := h.Authenticate(ctx, c, data.Token); err != nil {
			h.log.WithError(err).Warn("socket authentication failed")
			_ = c.sendEvent(EventAuthError, map[string]string{"message": "authentication failed"})
			_ = c.transport.Close()
		}
		return
	}

	if c.Identity() == nil {
		h.log.WithField("event", frame.Event).Warn("frame from unauthenticated connection refused")
		return
	}

	switch frame.Event {
	case FrameSubscribe:
		if room := decodeRoom(frame.Data); room != "" {
			h.registry.Subscribe(c, room)
		}
	case FrameUnsubscribe:
		if room := decodeRoom(frame.Data); room != "" {
			h.registry.Leave(c, room)
		}
	case FrameGroupJoin:
		h.handleGroupJoin(ctx, c, frame.Data)
	case FrameGroupLeave:
		h.handleGroupLeave(c, frame.Data)
	case FrameTyping:
		h.handleTyping(c, frame.Data)
	default:
		h.log.WithField("event", frame.Event).Debug("ignoring unknown frame")
	}
}

func decodeRoom(data json.RawMessage) string {
	var payload struct {
		Room string `json:"room"`
	}
	_ = json.Unmarshal(data, &payload)
	return payload.Room
}

func decodeGroupID(data json.RawMessage) string {
	var payload struct {
		GroupID string `json:"groupId"`
	}
	_ = json.Unmarshal(data, &payload)
	return payload.GroupID
}

// handleGroupJoin joins a connection to a group room after verifying the
// account's membership in persistence. group- rooms are not client
// subscribable, so this trusted path is the only way in.
func (h *Hub) handleGroupJoin(ctx context.Context, c *Client, data json.RawMessage) {
	groupID := decodeGroupID(data)
	if groupID == "" {
		return
	}
	identity := c.Identity()

	member, err := h.groups.IsMember(ctx, groupID, identity.AccountID)
	if err != nil {
		h.log.WithError(err).WithField("group_id", groupID).Warn("group membership lookup failed")
		return
	}
	if !member {
		h.log.WithFields(map[string]interface{}{
			"group_id":   groupID,
			"account_id": identity.AccountID,
		}).Warn("group join refused")
		return
	}

	room := GroupRoom(groupID)
	h.registry.Join(c, room)

	h.broadcaster.publish(EventGroupMemberJoined, GroupMemberPayload{
		GroupID:     groupID,
		AccountID:   identity.AccountID,
		DisplayName: identity.DisplayName,
		Timestamp:   time.Now().UTC(),
	}, room)
	h.broadcaster.publish(EventGroupPresence, PresencePayload{
		GroupID:   groupID,
		Members:   h.reconciler.Snapshot(room),
		Timestamp: time.Now().UTC(),
	}, room)
}

// handleGroupLeave removes the connection from a group room and runs the same
// member-left plus delayed-snapshot sequence as a disconnect.
func (h *Hub) handleGroupLeave(c *Client, data json.RawMessage) {
	groupID := decodeGroupID(data)
	if groupID == "" {
		return
	}
	room := GroupRoom(groupID)
	if !h.registry.InRoom(c, room) {
		return
	}
	identity := c.Identity()
	h.registry.Leave(c, room)

	h.broadcaster.publish(EventGroupMemberLeft, GroupMemberPayload{
		GroupID:     groupID,
		AccountID:   identity.AccountID,
		DisplayName: identity.DisplayName,
		Timestamp:   time.Now().UTC(),
	}, room)
	h.reconciler.scheduleSnapshot(room)
}

// handleTyping relays a typing indicator to the group; only members may send
// one.
func (h *Hub) handleTyping(c *Client, data json.RawMessage) {
	groupID := decodeGroupID(data)
	if groupID == "" {
		return
	}
	room := GroupRoom(groupID)
	if !h.registry.InRoom(c, room) {
		return
	}
	identity := c.Identity()
	h.broadcaster.publish(EventTyping, TypingPayload{
		GroupID:     groupID,
		AccountID:   identity.AccountID,
		DisplayName: identity.DisplayName,
		Timestamp:   time.Now().UTC(),
	}, room)
}

// Stats reports current room and connection counts.
func (h *Hub) Stats() (rooms, connections int) {
	return h.registry.Stats()
}

// Close drops every connection; used during shutdown.
func (h *Hub) Close() {
	for _, c := range h.registry.Connections() {
		_ = c.transport.Close()
		h.registry.Drop(c)
	}
}
