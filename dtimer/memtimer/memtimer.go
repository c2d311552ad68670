// Package memtimer is an in-memory dtimer.Facility for tests. Timers never
// fire on their own; tests call Fire to simulate the durable facility
// invoking its callback.
package memtimer

import (
	"context"
	"sync"
	"time"

	"github.com/meetsentinel/meetsentinel/dtimer"
)

var _ dtimer.Facility = (*Facility)(nil)

type Facility struct {
	mu     sync.Mutex
	timers map[string]time.Time
	fire   dtimer.FireFunc

	created int
	cleared int
}

func New() *Facility {
	return &Facility{timers: make(map[string]time.Time)}
}

// SetFireFunc registers the callback Fire delivers to.
func (f *Facility) SetFireFunc(fn dtimer.FireFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fire = fn
}

func (f *Facility) Create(_ context.Context, name string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.timers[name]; ok {
		return nil
	}

	f.timers[name] = at
	f.created++

	return nil
}

func (f *Facility) Exists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.timers[name]

	return ok, nil
}

func (f *Facility) Clear(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.timers[name]; ok {
		delete(f.timers, name)
		f.cleared++
	}

	return nil
}

// Fire simulates the named timer going off: the timer is consumed and the
// registered callback is invoked.
func (f *Facility) Fire(ctx context.Context, name string) error {
	f.mu.Lock()
	delete(f.timers, name)
	fn := f.fire
	f.mu.Unlock()

	if fn == nil {
		return nil
	}

	return fn(ctx, name)
}

// At returns the firing instant of a live timer.
func (f *Facility) At(name string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	at, ok := f.timers[name]

	return at, ok
}

// Created returns how many timers have actually been created, no-op
// duplicate creates excluded.
func (f *Facility) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.created
}

// Live returns the number of live timers.
func (f *Facility) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.timers)
}
