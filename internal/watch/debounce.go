package watch

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Debouncer coalesces bursts of filesystem events. Only the function from
// the latest call runs, once the burst has been quiet for the duration.
type Debouncer struct {
	mu       sync.Mutex
	clock    clock.Clock
	timer    *clock.Timer
	duration time.Duration
}

// NewDebouncer returns a debouncer on clk, or on wall time when clk is nil.
func NewDebouncer(duration time.Duration, clk clock.Clock) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	return &Debouncer{clock: clk, duration: duration}
}

// Debounce restarts the quiet period with fn as the function to run.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	d.stopLocked()
	d.timer = d.clock.AfterFunc(d.duration, fn)
	d.mu.Unlock()
}

// Cancel forgets the waiting function.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.stopLocked()
	d.mu.Unlock()
}

// Immediate runs fn now in place of whatever was waiting.
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}

func (d *Debouncer) stopLocked() {
	if d.timer == nil {
		return
	}
	d.timer.Stop()
	d.timer = nil
}
