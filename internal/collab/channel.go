// Package collab manages per-note room membership, the active-user rosters
// derived from join/leave events and snapshots, and the outbound edit and
// drawing broadcasts.
package collab

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"notesync/internal/event"
	"notesync/pkg/log"
)

// Emitter is the outbound send path, satisfied by the transport client.
type Emitter interface {
	Emit(ev event.Event) error
}

type room struct {
	roster []event.User
	draw   *Debouncer
}

// Channel tracks which rooms the local client is in and who else is active in
// them. Rosters are mutated only here, in response to inbound events; readers
// get copies. The local user never appears in a roster.
type Channel struct {
	localUser    event.User
	emitter      Emitter
	logger       log.Logger
	drawDebounce time.Duration

	mu    sync.Mutex
	rooms map[string]*room

	subs []*event.Subscription
}

// NewChannel creates a channel with no memberships.
func NewChannel(localUser event.User, emitter Emitter, drawDebounce time.Duration, logger log.Logger) *Channel {
	return &Channel{
		localUser:    localUser,
		emitter:      emitter,
		logger:       logger,
		drawDebounce: drawDebounce,
		rooms:        make(map[string]*room),
	}
}

// Attach subscribes the channel to the dispatcher. Rooms are not
// server-persisted across a dropped connection, so on every (re)connection all
// held memberships are re-established and fresh roster snapshots requested.
func (c *Channel) Attach(d *event.Dispatcher) {
	c.subs = append(c.subs,
		d.On(event.KindActiveUsersList, func(ev event.Event) {
			if list, ok := ev.(*event.ActiveUsersList); ok {
				c.applyRoster(list.NoteID, list.Users)
			}
		}),
		d.On(event.KindUserJoinedNote, func(ev event.Event) {
			if joined, ok := ev.(*event.UserJoinedNote); ok {
				c.applyJoin(joined.NoteID, joined.User)
			}
		}),
		d.On(event.KindUserLeftNote, func(ev event.Event) {
			if left, ok := ev.(*event.UserLeftNote); ok {
				c.applyLeave(left.NoteID, left.UserID)
			}
		}),
		d.On(event.KindConnected, func(event.Event) {
			c.rejoinAll()
		}),
	)
}

// Detach removes all subscriptions registered by Attach.
func (c *Channel) Detach(d *event.Dispatcher) {
	for _, sub := range c.subs {
		d.Off(sub)
	}
	c.subs = nil
}

// Join enters a room. Idempotent: joining a room already held does nothing.
// A roster snapshot is requested immediately, since join/leave deltas alone
// cannot reconstruct state for a client arriving after others.
func (c *Channel) Join(roomID string) {
	c.mu.Lock()
	if _, ok := c.rooms[roomID]; ok {
		c.mu.Unlock()
		return
	}
	c.rooms[roomID] = &room{draw: NewDebouncer(c.drawDebounce)}
	c.mu.Unlock()

	c.emitJoin(roomID)
}

// Leave exits a room, flushing any pending drawing frame first so a
// just-finished stroke is never dropped. Leaving a room not held is a no-op.
func (c *Channel) Leave(roomID string) {
	c.mu.Lock()
	rm, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.rooms, roomID)
	c.mu.Unlock()

	rm.draw.Flush()
	if err := c.emitter.Emit(&event.LeaveRoom{RoomID: roomID}); err != nil {
		c.logger.Warnf(context.Background(), "failed to leave room %s: %v", roomID, err)
	}
}

// Switch moves the client from one room to another, emitting the leave before
// the join so stale membership never outlives the owning view.
func (c *Channel) Switch(oldRoomID, newRoomID string) {
	if oldRoomID == newRoomID {
		return
	}
	c.Leave(oldRoomID)
	c.Join(newRoomID)
}

// EmitEdit broadcasts a content edit immediately. Edits are infrequent and
// must propagate promptly, so they bypass the debouncer.
func (c *Channel) EmitEdit(roomID string, updates event.NoteFields) {
	if err := c.emitter.Emit(&event.NoteUpdate{NoteID: roomID, Updates: updates}); err != nil {
		c.logger.Warnf(context.Background(), "failed to emit edit for %s: %v", roomID, err)
	}
}

// EmitDrawing broadcasts whiteboard data, coalesced per room: calls within the
// debounce window collapse to one send carrying the latest payload, and the
// final payload after input settles always flushes.
func (c *Channel) EmitDrawing(roomID string, whiteboardData json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[roomID]
	if !ok {
		c.logger.Debugf(context.Background(), "dropped drawing for %s: room not joined", roomID)
		return
	}

	// Armed while the membership lock is held: a concurrent Leave cannot
	// flush and drop the room between the lookup and the arm, so no drawing
	// frame is ever emitted after the room's leave-room frame.
	update := &event.DrawUpdate{NoteID: roomID, WhiteboardData: whiteboardData}
	rm.draw.Arm(func() {
		if err := c.emitter.Emit(update); err != nil {
			c.logger.Warnf(context.Background(), "failed to emit drawing for %s: %v", roomID, err)
		}
	})
}

// ActiveUsers returns the roster of other participants in a room.
func (c *Channel) ActiveUsers(roomID string) []event.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]event.User, len(rm.roster))
	copy(out, rm.roster)
	return out
}

// Rooms returns the ids of all held rooms.
func (c *Channel) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// Close flushes all pending drawing frames and leaves every room.
func (c *Channel) Close() {
	for _, roomID := range c.Rooms() {
		c.Leave(roomID)
	}
}

// rejoinAll re-establishes every held membership after a (re)connection.
// Memberships are kept, not re-created, so each room is joined exactly once.
func (c *Channel) rejoinAll() {
	for _, roomID := range c.Rooms() {
		c.emitJoin(roomID)
	}
}

func (c *Channel) emitJoin(roomID string) {
	if err := c.emitter.Emit(&event.JoinRoom{RoomID: roomID}); err != nil {
		c.logger.Warnf(context.Background(), "failed to join room %s: %v", roomID, err)
	}
	if err := c.emitter.Emit(&event.RequestActiveUsers{NoteID: roomID}); err != nil {
		c.logger.Warnf(context.Background(), "failed to request roster for %s: %v", roomID, err)
	}
}

// applyRoster replaces a room's roster with an authoritative snapshot.
func (c *Channel) applyRoster(roomID string, users []event.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[roomID]
	if !ok {
		return
	}
	roster := make([]event.User, 0, len(users))
	seen := make(map[string]bool, len(users))
	for _, user := range users {
		if user.ID == c.localUser.ID || seen[user.ID] {
			continue
		}
		seen[user.ID] = true
		roster = append(roster, user)
	}
	rm.roster = roster
}

// applyJoin adds a user to a held room's roster, at most once.
func (c *Channel) applyJoin(roomID string, user event.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[roomID]
	if !ok || user.ID == c.localUser.ID {
		return
	}
	for _, existing := range rm.roster {
		if existing.ID == user.ID {
			return
		}
	}
	rm.roster = append(rm.roster, user)
}

// applyLeave removes a user from a held room's roster.
func (c *Channel) applyLeave(roomID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[roomID]
	if !ok {
		return
	}
	for i, existing := range rm.roster {
		if existing.ID == userID {
			rm.roster = append(rm.roster[:i], rm.roster[i+1:]...)
			return
		}
	}
}
