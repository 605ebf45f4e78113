package event

import (
	"context"
	"sync"

	"notesync/pkg/log"
)

// Handler consumes a dispatched event. Handlers run serially on the goroutine
// delivering the event, in registration order; a panicking handler is isolated
// and does not prevent delivery to the rest.
type Handler func(Event)

// Subscription identifies one registered handler so it can be revoked
// individually. Func values are not comparable in Go, so revocation goes
// through the handle rather than the handler itself.
type Subscription struct {
	id   uint64
	kind Kind
	once bool
	fn   Handler
}

// Kind returns the event kind the subscription is registered for.
func (s *Subscription) Kind() Kind { return s.kind }

// Dispatcher routes events to registered handlers. Registration and dispatch
// are safe to call from different goroutines.
type Dispatcher struct {
	mu      sync.Mutex
	nextID  uint64
	persist map[Kind][]*Subscription
	once    map[Kind][]*Subscription
	logger  log.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger log.Logger) *Dispatcher {
	return &Dispatcher{
		persist: make(map[Kind][]*Subscription),
		once:    make(map[Kind][]*Subscription),
		logger:  logger,
	}
}

// On registers a persistent handler for the given kind.
func (d *Dispatcher) On(kind Kind, fn Handler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	sub := &Subscription{id: d.nextID, kind: kind, fn: fn}
	d.persist[kind] = append(d.persist[kind], sub)
	return sub
}

// Once registers a handler that fires at most once and is then removed.
// One-shot handlers fire after all persistent handlers for the same event.
func (d *Dispatcher) Once(kind Kind, fn Handler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	sub := &Subscription{id: d.nextID, kind: kind, once: true, fn: fn}
	d.once[kind] = append(d.once[kind], sub)
	return sub
}

// Off removes a subscription. Removing one that is not registered (or already
// fired, for one-shots) is a no-op.
func (d *Dispatcher) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	set := d.persist
	if sub.once {
		set = d.once
	}
	subs := set[sub.kind]
	for i, s := range subs {
		if s.id == sub.id {
			set[sub.kind] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Dispatch delivers an event to all matching persistent handlers in
// registration order, then to one-shot handlers, which are removed first so a
// handler re-registering itself does not fire twice.
func (d *Dispatcher) Dispatch(ev Event) {
	kind := ev.EventKind()

	d.mu.Lock()
	persist := make([]*Subscription, len(d.persist[kind]))
	copy(persist, d.persist[kind])
	oneShots := d.once[kind]
	delete(d.once, kind)
	d.mu.Unlock()

	for _, sub := range persist {
		d.invoke(sub, ev)
	}
	for _, sub := range oneShots {
		d.invoke(sub, ev)
	}
}

func (d *Dispatcher) invoke(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf(context.Background(), "handler for %s panicked: %v", sub.kind, r)
		}
	}()
	sub.fn(ev)
}
