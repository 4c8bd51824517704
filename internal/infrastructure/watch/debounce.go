// Package watch re-runs work when the files of a design folder change.
package watch

import (
	"sort"
	"sync"
	"time"
)

// Debouncer collects changed paths and delivers them as one batch once no
// new change has arrived for the configured delay.
type Debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	pending  map[string]struct{}
	callback func(paths []string)
	gen      uint64
	stopped  bool
}

// NewDebouncer creates a debouncer that calls fn with the sorted set of
// paths seen during the quiet window.
func NewDebouncer(delay time.Duration, fn func(paths []string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		pending:  make(map[string]struct{}),
		callback: fn,
	}
}

// Trigger records a change to path and restarts the quiet window.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A later Trigger or Stop superseded this timer.
	if d.stopped || gen != d.gen || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(paths)
	d.callback(paths)
}

// Pending reports how many distinct paths are waiting for delivery.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels any pending delivery. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = make(map[string]struct{})
	if d.timer != nil {
		d.timer.Stop()
	}
}
