package performance

import (
	"sync"
	"time"

	"github.com/filecoin-project/go-clock"
)

// Debouncer coalesces bursts of calls per key into a single call made once
// the key has been quiet for the configured duration.
type Debouncer struct {
	mutex    sync.Mutex
	clock    clock.Clock
	timers   map[string]*clock.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(clk clock.Clock, duration time.Duration) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	return &Debouncer{
		clock:    clk,
		timers:   make(map[string]*clock.Timer),
		duration: duration,
	}
}

// Debounce schedules fn for key. A call with the same key before the
// duration expires replaces the pending one.
func (d *Debouncer) Debounce(key string, fn func()) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if timer, exists := d.timers[key]; exists {
		timer.Stop()
	}

	var timer *clock.Timer
	timer = d.clock.AfterFunc(d.duration, func() {
		d.mutex.Lock()
		// A newer Debounce may have replaced us between firing and locking
		if d.timers[key] != timer {
			d.mutex.Unlock()
			return
		}
		delete(d.timers, key)
		d.mutex.Unlock()
		fn()
	})
	d.timers[key] = timer
}

// Pending reports how many keys have a scheduled call
func (d *Debouncer) Pending() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.timers)
}

// Cancel cancels a pending debounced function call
func (d *Debouncer) Cancel(key string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if timer, exists := d.timers[key]; exists {
		timer.Stop()
		delete(d.timers, key)
	}
}

// Clear cancels all pending debounced function calls
func (d *Debouncer) Clear() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
