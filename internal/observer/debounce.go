package observer

import (
	"sync"
	"time"
)

// debouncer schedules at most one pending callback per key, cancelling and
// rescheduling on each Trigger.
type debouncer struct {
	delay time.Duration
	fn    func(key string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDebouncer(delay time.Duration, fn func(key string)) *debouncer {
	return &debouncer{
		delay:  delay,
		fn:     fn,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger cancels any pending timer for key and schedules a new one.
func (d *debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		d.fn(key)
	})
}

// SetDelay updates the debounce window used by future Trigger calls.
// Already-scheduled timers keep firing at their original delay.
func (d *debouncer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// Cancel stops any pending timer for key without firing it.
func (d *debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// CancelAll stops every pending timer. Used by observer.Stop().
func (d *debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
