package window

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDebounce is the coalescing delay for map movement.
const DefaultDebounce = 150 * time.Millisecond

// Debouncer collapses a burst of triggers into one delayed call. Each Trigger
// discards any pending call and reschedules; only the last one runs.
type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration

	mu    sync.Mutex
	timer clockwork.Timer
	seq   uint64
}

// NewDebouncer creates a Debouncer. A non-positive delay uses DefaultDebounce
// and a nil clock uses the real clock.
func NewDebouncer(delay time.Duration, clock clockwork.Clock) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Delay returns the coalescing delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn to run after the delay and reports whether it
// superseded a pending call.
func (d *Debouncer) Trigger(fn func()) (superseded bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	superseded = d.stopLocked()
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A timer that already fired cannot be stopped; the sequence check
		// drops it if a newer Trigger or Cancel happened since.
		if d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
	return superseded
}

// Cancel discards the pending call, if any, and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

// Pending reports whether a call is scheduled and has not yet run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() bool {
	d.seq++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}
