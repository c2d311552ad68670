// Package dtimer defines the durable-timer facility: named timers that
// survive process restart. A timer fires at most once; creating a timer
// whose name already exists is a no-op, which is what makes re-ingestion
// and restart re-walks safe.
package dtimer

import (
	"context"
	"time"
)

// FireFunc is invoked with the fired timer's name.
type FireFunc func(ctx context.Context, name string) error

// Facility creates, queries and cancels named durable timers.
type Facility interface {
	// Create schedules a timer firing at the given instant. If a live timer
	// with this name already exists the call is a no-op and returns nil.
	Create(ctx context.Context, name string, at time.Time) error

	// Exists reports whether a live (not yet consumed) timer with this name
	// is scheduled.
	Exists(ctx context.Context, name string) (bool, error)

	// Clear cancels the named timer. Clearing a missing timer is a no-op.
	Clear(ctx context.Context, name string) error
}
