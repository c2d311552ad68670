// Package kv defines the persistent key-value store the service keeps all
// durable state in. No in-memory state is authoritative: every transition is
// re-derivable from this store after a restart.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is the abstract key-value store. Implementations are assumed
// read-after-write consistent within one process.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Key namespaces used across the service.
const (
	KeyCanonicalEvents = "events:canonical"
	KeyReminderConfig  = "settings:reminder"
	PrefixTrigger      = "trigger:"
	PrefixToken        = "token:"
	PrefixDeclined     = "declined:"
	PrefixSnoozeSeq    = "snoozeseq:"
)
