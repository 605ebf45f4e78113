package collab

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu   sync.Mutex
	vals []int
}

func (r *recorder) record(v int) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.vals = append(r.vals, v)
	}
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.vals))
	copy(out, r.vals)
	return out
}

func TestBurstCollapsesToLastCall(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	rec := &recorder{}

	for i := 1; i <= 10; i++ {
		d.Arm(rec.record(i))
	}

	assert.Eventually(t, func() bool {
		vals := rec.values()
		return len(vals) == 1 && vals[0] == 10
	}, time.Second, 5*time.Millisecond)

	// Quiet period: nothing further fires.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []int{10}, rec.values())
}

func TestSingleCallFiresAfterWindow(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	rec := &recorder{}

	d.Arm(rec.record(1))
	assert.Empty(t, rec.values(), "must not fire before the window elapses")

	assert.Eventually(t, func() bool {
		return len(rec.values()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFlushRunsPendingImmediately(t *testing.T) {
	d := NewDebouncer(time.Hour)
	rec := &recorder{}

	d.Arm(rec.record(7))
	d.Flush()

	assert.Equal(t, []int{7}, rec.values())
	assert.False(t, d.Pending())

	// Flushing with nothing pending is a no-op.
	d.Flush()
	assert.Equal(t, []int{7}, rec.values())
}

func TestCancelDropsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	rec := &recorder{}

	d.Arm(rec.record(1))
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.values())
}

func TestRearmAfterFire(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	rec := &recorder{}

	d.Arm(rec.record(1))
	assert.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)

	d.Arm(rec.record(2))
	assert.Eventually(t, func() bool { return len(rec.values()) == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []int{1, 2}, rec.values())
}
