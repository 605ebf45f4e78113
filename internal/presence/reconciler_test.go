package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/internal/event"
	"notesync/pkg/log"
)

type fakeEmitter struct {
	mu     sync.Mutex
	events []event.Event
}

func (f *fakeEmitter) Emit(ev event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEmitter) kinds() []event.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.Kind, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.EventKind())
	}
	return out
}

func newTestReconciler() (*Reconciler, *fakeEmitter) {
	emitter := &fakeEmitter{}
	return New("self", emitter, log.NewNop()), emitter
}

func TestIsOnlineUnknownUser(t *testing.T) {
	r, _ := newTestReconciler()
	assert.False(t, r.IsOnline("stranger"))
}

func TestUpdateOneThenIsOnline(t *testing.T) {
	r, _ := newTestReconciler()
	r.UpdateOne(event.StatusUpdate{UserID: "u1", Status: event.StatusOnline})
	assert.True(t, r.IsOnline("u1"))

	r.UpdateOne(event.StatusUpdate{UserID: "u1", Status: event.StatusOffline})
	assert.False(t, r.IsOnline("u1"))
}

func TestBulkIgnoredWhenNewerDeltaExists(t *testing.T) {
	r, _ := newTestReconciler()
	base := time.Now()

	// Delta received after the snapshot's receipt time wins regardless of
	// the order the writes are applied in.
	r.UpdateOneAt(event.StatusUpdate{UserID: "u1", Status: event.StatusOffline}, base.Add(2*time.Second))
	r.UpdateBulkAt([]event.StatusUpdate{
		{UserID: "u1", Status: event.StatusOnline},
		{UserID: "u2", Status: event.StatusOnline},
	}, base)

	assert.False(t, r.IsOnline("u1"), "stale snapshot must not overwrite newer delta")
	assert.True(t, r.IsOnline("u2"), "snapshot applies to keys without newer deltas")
}

func TestBulkOverwritesOlderDelta(t *testing.T) {
	r, _ := newTestReconciler()
	base := time.Now()

	r.UpdateOneAt(event.StatusUpdate{UserID: "u1", Status: event.StatusOffline}, base)
	r.UpdateBulkAt([]event.StatusUpdate{{UserID: "u1", Status: event.StatusOnline}}, base.Add(time.Second))

	assert.True(t, r.IsOnline("u1"))
}

func TestBulkStoresStrangers(t *testing.T) {
	r, _ := newTestReconciler()
	r.UpdateBulk([]event.StatusUpdate{{UserID: "never-seen", Status: event.StatusOnline}})

	entry, ok := r.Get("never-seen")
	require.True(t, ok)
	assert.Equal(t, event.StatusOnline, entry.Status)
}

func TestSweepStaleFlipsQuietEntries(t *testing.T) {
	r, _ := newTestReconciler()
	now := time.Now()
	r.now = func() time.Time { return now }

	r.UpdateOneAt(event.StatusUpdate{UserID: "quiet", Status: event.StatusOnline}, now.Add(-10*time.Minute))
	r.UpdateOneAt(event.StatusUpdate{UserID: "active", Status: event.StatusOnline}, now.Add(-time.Minute))

	flipped := r.SweepStale(5 * time.Minute)

	assert.Equal(t, 1, flipped)
	assert.False(t, r.IsOnline("quiet"))
	assert.True(t, r.IsOnline("active"))
}

func TestSweepDoesNotFlipFreshlyUpdatedEntry(t *testing.T) {
	r, _ := newTestReconciler()
	now := time.Now()
	r.now = func() time.Time { return now }

	r.UpdateOneAt(event.StatusUpdate{UserID: "u1", Status: event.StatusOnline}, now.Add(-10*time.Minute))

	// A delta lands between the sweep's scan and its apply; the apply-time
	// re-check must leave the entry online.
	r.UpdateOneAt(event.StatusUpdate{UserID: "u1", Status: event.StatusOnline}, now)
	flipped := r.SweepStale(5 * time.Minute)

	assert.Zero(t, flipped)
	assert.True(t, r.IsOnline("u1"))
}

func TestSweepSafeUnderConcurrentUpdates(t *testing.T) {
	r, _ := newTestReconciler()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.UpdateOne(event.StatusUpdate{UserID: "u1", Status: event.StatusOnline})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			r.SweepStale(time.Minute)
		}
	}()
	wg.Wait()

	// Every write is recent, so the sweeps must never have flipped it.
	assert.True(t, r.IsOnline("u1"))
}

func TestResyncOnConnected(t *testing.T) {
	r, emitter := newTestReconciler()
	d := event.NewDispatcher(log.NewNop())
	r.Attach(d)

	d.Dispatch(&event.Connected{})

	kinds := emitter.kinds()
	assert.Contains(t, kinds, event.KindRequestOnlineUsers)
	assert.Contains(t, kinds, event.KindUserStatus)
	assert.True(t, r.IsOnline("self"))
}

func TestDetachStopsHandling(t *testing.T) {
	r, _ := newTestReconciler()
	d := event.NewDispatcher(log.NewNop())
	r.Attach(d)
	r.Detach(d)

	d.Dispatch(&event.StatusUpdate{UserID: "u1", Status: event.StatusOnline})
	assert.False(t, r.IsOnline("u1"))
}
