// Package presence maintains the user -> online status map, reconciling bulk
// snapshots with incremental deltas and expiring entries that went quiet.
package presence

import (
	"context"
	"sync"
	"time"

	"notesync/internal/event"
	"notesync/pkg/log"
)

// Emitter is the outbound send path, satisfied by the transport client.
type Emitter interface {
	Emit(ev event.Event) error
}

// Entry is one user's reconciled presence state.
type Entry struct {
	Status      event.Status `json:"status"`
	LastSeen    time.Time    `json:"lastSeen"`
	CurrentPage string       `json:"currentPage,omitempty"`
	// LastUpdated is the local receipt time of the write that produced this
	// entry. Conflicts resolve last-writer-wins on this field, not on server
	// timestamps, since clock skew across clients is not corrected.
	LastUpdated time.Time `json:"lastUpdated"`
}

// Reconciler holds the presence map. All writes go through its methods so the
// per-key monotonicity of LastUpdated holds; readers get copies.
type Reconciler struct {
	selfID  string
	emitter Emitter
	logger  log.Logger

	mu      sync.RWMutex
	entries map[string]Entry

	// now is swappable for tests.
	now func() time.Time

	subs []*event.Subscription
}

// New creates an empty reconciler. selfID is the local user, whose own status
// transitions are announced rather than merely recorded.
func New(selfID string, emitter Emitter, logger log.Logger) *Reconciler {
	return &Reconciler{
		selfID:  selfID,
		emitter: emitter,
		logger:  logger,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Attach subscribes the reconciler to the dispatcher. On every (re)connection
// it re-requests the authoritative snapshot and announces the local user as
// online; replayed deltas across a reconnect are never trusted.
func (r *Reconciler) Attach(d *event.Dispatcher) {
	r.subs = append(r.subs,
		d.On(event.KindUserStatus, func(ev event.Event) {
			if su, ok := ev.(*event.StatusUpdate); ok {
				r.UpdateOne(*su)
			}
		}),
		d.On(event.KindOnlineUsersList, func(ev event.Event) {
			if list, ok := ev.(*event.OnlineUsersList); ok {
				r.UpdateBulk(list.Users)
			}
		}),
		d.On(event.KindConnected, func(event.Event) {
			r.resync()
		}),
	)
}

// Detach removes all subscriptions registered by Attach.
func (r *Reconciler) Detach(d *event.Dispatcher) {
	for _, sub := range r.subs {
		d.Off(sub)
	}
	r.subs = nil
}

func (r *Reconciler) resync() {
	if err := r.emitter.Emit(&event.RequestOnlineUsers{}); err != nil {
		r.logger.Warnf(context.Background(), "failed to request presence snapshot: %v", err)
	}
	r.Announce(event.StatusOnline, "")
}

// Announce emits the local user's own status and records it locally.
func (r *Reconciler) Announce(status event.Status, currentPage string) {
	update := event.StatusUpdate{
		UserID:      r.selfID,
		Status:      status,
		LastSeen:    r.now(),
		CurrentPage: currentPage,
	}
	if err := r.emitter.Emit(&update); err != nil {
		r.logger.Warnf(context.Background(), "failed to announce status: %v", err)
	}
	r.UpdateOne(update)
}

// UpdateOne applies an incremental delta received now.
func (r *Reconciler) UpdateOne(update event.StatusUpdate) {
	r.UpdateOneAt(update, r.now())
}

// UpdateOneAt applies an incremental delta with an explicit receipt time.
func (r *Reconciler) UpdateOneAt(update event.StatusUpdate, receivedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(update, receivedAt)
}

// UpdateBulk applies a full or partial snapshot received now. Per key, the
// write is ignored if a more recent delta is already present.
func (r *Reconciler) UpdateBulk(updates []event.StatusUpdate) {
	r.UpdateBulkAt(updates, r.now())
}

// UpdateBulkAt applies a snapshot with an explicit receipt time.
func (r *Reconciler) UpdateBulkAt(updates []event.StatusUpdate, receivedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, update := range updates {
		r.applyLocked(update, receivedAt)
	}
}

// applyLocked writes one entry unless a newer local write exists for the key.
func (r *Reconciler) applyLocked(update event.StatusUpdate, receivedAt time.Time) {
	if update.UserID == "" {
		return
	}
	if existing, ok := r.entries[update.UserID]; ok && existing.LastUpdated.After(receivedAt) {
		return
	}
	r.entries[update.UserID] = Entry{
		Status:      update.Status,
		LastSeen:    update.LastSeen,
		CurrentPage: update.CurrentPage,
		LastUpdated: receivedAt,
	}
}

// IsOnline reports whether the user is known to be online. Unknown users are
// offline. Friends-only filtering is the caller's concern; entries are kept
// for any user the server mentions.
func (r *Reconciler) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[userID]
	return ok && entry.Status == event.StatusOnline
}

// Get returns the entry for a user, if known.
func (r *Reconciler) Get(userID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[userID]
	return entry, ok
}

// Snapshot returns a copy of the presence map.
func (r *Reconciler) Snapshot() map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Entry, len(r.entries))
	for id, entry := range r.entries {
		out[id] = entry
	}
	return out
}

// OnlineCount returns the number of users currently online.
func (r *Reconciler) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, entry := range r.entries {
		if entry.Status == event.StatusOnline {
			count++
		}
	}
	return count
}

// SweepStale flips entries to offline when neither a heartbeat nor a local
// write has been seen within the threshold. Recency is re-checked per entry at
// apply time, under the write lock, so a fresh update racing the sweep is
// never flipped back offline. Returns the number of entries flipped.
func (r *Reconciler) SweepStale(threshold time.Duration) int {
	cutoff := r.now().Add(-threshold)

	r.mu.RLock()
	candidates := make([]string, 0)
	for id, entry := range r.entries {
		if entry.Status == event.StatusOnline && r.staleLocked(entry, cutoff) {
			candidates = append(candidates, id)
		}
	}
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return 0
	}

	flipped := 0
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range candidates {
		entry, ok := r.entries[id]
		if !ok || entry.Status != event.StatusOnline || !r.staleLocked(entry, cutoff) {
			continue
		}
		entry.Status = event.StatusOffline
		r.entries[id] = entry
		flipped++
	}
	return flipped
}

func (r *Reconciler) staleLocked(entry Entry, cutoff time.Time) bool {
	latest := entry.LastUpdated
	if entry.LastSeen.After(latest) {
		latest = entry.LastSeen
	}
	return latest.Before(cutoff)
}
