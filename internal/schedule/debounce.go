package schedule

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of triggers into one task run after a quiet
// window. A new trigger re-arms the pending run rather than running twice.
type Debouncer struct {
	sched  Scheduler
	window time.Duration

	mu      sync.Mutex
	pending Handle
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(sched Scheduler, window time.Duration) *Debouncer {
	return &Debouncer{sched: sched, window: window}
}

// Trigger schedules task to run after the quiet window, superseding any
// previously pending run.
func (d *Debouncer) Trigger(task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
	}
	d.pending = d.sched.After(d.window, func() {
		d.mu.Lock()
		d.pending = nil
		d.mu.Unlock()
		task()
	})
}

// Cancel drops any pending run.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
