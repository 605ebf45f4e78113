package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"notesync/internal/event"
	"notesync/pkg/log"
)

// seenLimit bounds the dedupe set; beyond it the oldest keys are evicted.
const seenLimit = 1024

// Listener receives each new notification together with its toast. It runs on
// the goroutine delivering the triggering event; keep it cheap.
type Listener func(n Notification, t Toast)

// Notifier subscribes to the qualifying domain events and fans each one out
// into exactly one durable record plus one toast. The server may redeliver an
// event after a reconnect-triggered resync; redeliveries are suppressed by the
// event's natural identity.
type Notifier struct {
	logger   log.Logger
	store    *Store // optional; nil keeps records in memory only
	listener Listener

	mu        sync.Mutex
	list      []Notification
	seen      map[string]struct{}
	seenOrder []string

	subs []*event.Subscription
}

// NewNotifier creates a notifier. store may be nil.
func NewNotifier(store *Store, logger log.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		store:  store,
		seen:   make(map[string]struct{}),
	}
}

// SetListener registers the UI-facing callback for new notifications.
func (n *Notifier) SetListener(fn Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listener = fn
}

// Load populates the in-memory list from the store.
func (n *Notifier) Load(ctx context.Context) error {
	if n.store == nil {
		return nil
	}
	records, err := n.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = records
	return nil
}

// Attach subscribes the notifier to the dispatcher.
func (n *Notifier) Attach(d *event.Dispatcher) {
	n.subs = append(n.subs,
		d.On(event.KindFriendRequest, func(ev event.Event) {
			if req, ok := ev.(*event.FriendRequest); ok {
				n.onFriendRequest(req)
			}
		}),
		d.On(event.KindNoteShare, func(ev event.Event) {
			if share, ok := ev.(*event.NoteShare); ok {
				n.onNoteShare(share)
			}
		}),
		d.On(event.KindInstanceInvite, func(ev event.Event) {
			if invite, ok := ev.(*event.InstanceInvite); ok {
				n.onInstanceInvite(invite)
			}
		}),
	)
}

// Detach removes all subscriptions registered by Attach.
func (n *Notifier) Detach(d *event.Dispatcher) {
	for _, sub := range n.subs {
		d.Off(sub)
	}
	n.subs = nil
}

func (n *Notifier) onFriendRequest(req *event.FriendRequest) {
	n.add(
		"friend_request:"+req.ID,
		Notification{
			Type:    TypeFriendRequest,
			Title:   "New friend request",
			Message: fmt.Sprintf("%s wants to be your friend", req.FriendEmail),
			Data: map[string]string{
				"requestId": req.ID,
				"userId":    req.UserID,
			},
			ActionURL: "/friends/requests",
		},
		Toast{Severity: SeverityInfo, Message: fmt.Sprintf("Friend request from %s", req.FriendEmail)},
	)
}

func (n *Notifier) onNoteShare(share *event.NoteShare) {
	n.add(
		fmt.Sprintf("note_share:%s:%s", share.NoteID, share.SharedBy),
		Notification{
			Type:    TypeNoteShare,
			Title:   "Note shared with you",
			Message: fmt.Sprintf("%s shared a note with you (%s)", share.SharedBy, share.Role),
			Data: map[string]string{
				"noteId":   share.NoteID,
				"sharedBy": share.SharedBy,
				"role":     share.Role,
			},
			ActionURL: "/notes/" + share.NoteID,
		},
		Toast{Severity: SeveritySuccess, Message: fmt.Sprintf("%s shared a note with you", share.SharedBy)},
	)
}

func (n *Notifier) onInstanceInvite(invite *event.InstanceInvite) {
	name := invite.InstanceName
	if name == "" {
		name = invite.InstanceID
	}
	n.add(
		"instance_invitation:"+invite.ID,
		Notification{
			Type:    TypeInstanceInvite,
			Title:   "Workspace invitation",
			Message: fmt.Sprintf("%s invited you to %s", invite.InvitedBy, name),
			Data: map[string]string{
				"invitationId": invite.ID,
				"instanceId":   invite.InstanceID,
			},
			ActionURL: "/instances/invitations",
		},
		Toast{Severity: SeverityInfo, Message: fmt.Sprintf("Invitation to %s", name)},
	)
}

// add records one notification, head-inserted and unread, and hands it to the
// listener alongside its toast. Duplicate keys are dropped.
func (n *Notifier) add(dedupeKey string, notif Notification, toast Toast) {
	n.mu.Lock()
	if _, dup := n.seen[dedupeKey]; dup {
		n.mu.Unlock()
		n.logger.Debugf(context.Background(), "suppressed redelivered event %s", dedupeKey)
		return
	}
	n.seen[dedupeKey] = struct{}{}
	n.seenOrder = append(n.seenOrder, dedupeKey)
	if len(n.seenOrder) > seenLimit {
		delete(n.seen, n.seenOrder[0])
		n.seenOrder = n.seenOrder[1:]
	}

	notif.ID = uuid.New().String()
	notif.Read = false
	notif.CreatedAt = time.Now()
	n.list = append([]Notification{notif}, n.list...)
	listener := n.listener
	n.mu.Unlock()

	if n.store != nil {
		if err := n.store.Insert(context.Background(), notif); err != nil {
			n.logger.Errorf(context.Background(), "failed to persist notification %s: %v", notif.ID, err)
		}
	}
	if listener != nil {
		listener(notif, toast)
	}
}

// MarkRead flips one notification to read. Local-optimistic: takes effect
// immediately, persistence is best effort.
func (n *Notifier) MarkRead(id string) {
	n.mu.Lock()
	for i := range n.list {
		if n.list[i].ID == id {
			n.list[i].Read = true
			break
		}
	}
	n.mu.Unlock()

	if n.store != nil {
		if err := n.store.MarkRead(context.Background(), id); err != nil {
			n.logger.Errorf(context.Background(), "failed to persist read flag for %s: %v", id, err)
		}
	}
}

// MarkAllRead flips every notification to read without deleting any.
func (n *Notifier) MarkAllRead() {
	n.mu.Lock()
	for i := range n.list {
		n.list[i].Read = true
	}
	n.mu.Unlock()

	if n.store != nil {
		if err := n.store.MarkAllRead(context.Background()); err != nil {
			n.logger.Errorf(context.Background(), "failed to persist mark-all-read: %v", err)
		}
	}
}

// Remove deletes one notification. Only explicit user action removes records.
func (n *Notifier) Remove(id string) {
	n.mu.Lock()
	for i := range n.list {
		if n.list[i].ID == id {
			n.list = append(n.list[:i], n.list[i+1:]...)
			break
		}
	}
	n.mu.Unlock()

	if n.store != nil {
		if err := n.store.Delete(context.Background(), id); err != nil {
			n.logger.Errorf(context.Background(), "failed to delete notification %s: %v", id, err)
		}
	}
}

// Notifications returns a copy of the list, newest first.
func (n *Notifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.list))
	copy(out, n.list)
	return out
}

// UnreadCount returns the number of unread notifications.
func (n *Notifier) UnreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for i := range n.list {
		if !n.list[i].Read {
			count++
		}
	}
	return count
}
