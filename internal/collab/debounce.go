package collab

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of calls into one firing of the most recently
// armed function after a quiet window. Arm replaces any pending function, so
// the last call within a window always wins; Flush runs a pending function
// immediately. Owners must Flush (not Cancel) on teardown so the final armed
// payload is never dropped. Pending functions run under the debouncer's lock,
// so once Flush returns nothing fires later; they must not call back into the
// debouncer.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Arm schedules fn to run after the window, replacing any pending function
// and restarting the window.
func (d *Debouncer) Arm(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn := d.pending
	d.pending = nil
	d.timer = nil
	if fn != nil {
		fn()
	}
}

// Flush runs the pending function now, if any, and stops the timer. A fire
// already in flight completes before Flush returns.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if fn != nil {
		fn()
	}
}

// Cancel drops the pending function without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a function is armed and waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
