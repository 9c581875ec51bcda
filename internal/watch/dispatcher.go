package watch

import (
	"log/slog"
	"sync"
)

// Dispatcher runs submitted jobs on at most n concurrent goroutines.
// Submit never blocks and never drops a job; jobs beyond the limit wait
// for a free slot in no particular order.
type Dispatcher struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

// NewDispatcher creates a dispatcher with n slots. n < 1 is treated as 1.
func NewDispatcher(n int) *Dispatcher {
	if n < 1 {
		n = 1
	}

	return &Dispatcher{slots: make(chan struct{}, n)}
}

// Submit schedules job.
func (d *Dispatcher) Submit(job func()) {
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		d.slots <- struct{}{}
		defer func() { <-d.slots }()

		defer func() {
			if r := recover(); r != nil {
				slog.Error("rebuild job panicked", slog.Any("error", r))
			}
		}()

		job()
	}()
}

// Wait blocks until every submitted job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
