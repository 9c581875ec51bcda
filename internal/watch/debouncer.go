package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces a burst of events into one callback. The callback
// receives the last event of the burst and how many events it absorbed.
type Debouncer struct {
	interval time.Duration
	fire     func(last Event, count int)

	mu      sync.Mutex
	timer   *time.Timer
	last    Event
	pending int
	stopped bool
}

// NewDebouncer creates a debouncer that fires after interval of quiet.
func NewDebouncer(interval time.Duration, fire func(last Event, count int)) *Debouncer {
	return &Debouncer{
		interval: interval,
		fire:     fire,
	}
}

// Trigger records ev and restarts the quiet period.
func (d *Debouncer) Trigger(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.last = ev
	d.pending++

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || d.pending == 0 {
		d.mu.Unlock()

		return
	}

	ev, n := d.last, d.pending
	d.pending = 0
	d.timer = nil
	d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("debounced callback panicked", slog.Any("error", r))
		}
	}()

	d.fire(ev, n)
}

// Stop discards any pending burst. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = 0

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
