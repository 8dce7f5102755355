package realtime

import (
	"sort"
	"time"

	"github.com/cambio-network/exchange_layer/internal/logging"
	"github.com/cambio-network/exchange_layer/internal/metrics"
)

// Reconciler keeps group presence accurate as connections drop. Member-left
// events go out immediately; the refreshed snapshot is deferred by a settling
// delay so a burst of teardowns from one account (a closing browser tab)
// collapses into one recomputation per room.
type Reconciler struct {
	registry    *Registry
	broadcaster *Broadcaster
	settleDelay time.Duration
	log         *logging.Logger
	metrics     *metrics.Metrics
}

// NewReconciler creates a reconciler with the given settling delay.
func NewReconciler(registry *Registry, broadcaster *Broadcaster, settleDelay time.Duration, log *logging.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		registry:    registry,
		broadcaster: broadcaster,
		settleDelay: settleDelay,
		log:         log,
		metrics:     m,
	}
}

// Snapshot recomputes the presence list for a group room from the currently
// attached sockets, deduplicated by account id. Unauthenticated members (a
// state that cannot normally occur) are skipped.
func (r *Reconciler) Snapshot(room string) []PresenceMember {
	seen := make(map[string]bool)
	var members []PresenceMember
	for _, c := range r.registry.MembersOf(room) {
		id := c.Identity()
		if id == nil || seen[id.AccountID] {
			continue
		}
		seen[id.AccountID] = true
		members = append(members, PresenceMember{AccountID: id.AccountID, DisplayName: id.DisplayName})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].AccountID < members[j].AccountID })
	return members
}

// OnDisconnect runs the reconciliation sequence for a dropped connection that
// was a member of the given group rooms. identity is the connection's
// identity at teardown time.
func (r *Reconciler) OnDisconnect(identity *Identity, groupRooms []string) {
	if identity == nil || len(groupRooms) == 0 {
		return
	}

	now := time.Now().UTC()
	for _, room := range groupRooms {
		r.broadcaster.publish(EventGroupMemberLeft, GroupMemberPayload{
			GroupID:     GroupID(room),
			AccountID:   identity.AccountID,
			DisplayName: identity.DisplayName,
			Timestamp:   now,
		}, room)

		r.scheduleSnapshot(room)
	}
}

// scheduleSnapshot defers a presence recomputation for the room by the
// settling delay.
func (r *Reconciler) scheduleSnapshot(room string) {
	time.AfterFunc(r.settleDelay, func() {
		defer func() {
			// A panic here must not take the process down; presence becomes
			// eventually consistent on the next pass.
			if rec := recover(); rec != nil {
				r.log.WithField("panic", rec).Error("presence reconciliation failed")
			}
		}()

		r.broadcaster.publish(EventGroupPresence, PresencePayload{
			GroupID:   GroupID(room),
			Members:   r.Snapshot(room),
			Timestamp: time.Now().UTC(),
		}, room)

		if r.metrics != nil {
			r.metrics.ReconciliationRun()
		}
	})
}
