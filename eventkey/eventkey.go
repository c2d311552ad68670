// Package eventkey derives the identity key that decides whether two event
// reports describe the same logical meeting. The reconciler uses it for
// deduplication and the scheduler uses it for trigger naming, so both layers
// agree on what "the same meeting" means.
package eventkey

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeTitle lower-cases a title and collapses runs of whitespace so
// near-identical reports from a page scrape and an API coalesce.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// ForEvent returns the identity key for a meeting: normalized title plus the
// start instant floored to the containing minute.
func ForEvent(title string, start time.Time) string {
	minute := start.Unix() - start.Unix()%60

	return fmt.Sprintf("%s@%d", NormalizeTitle(title), minute)
}

// Snooze derives the key for the n-th snooze of a meeting. Snoozed triggers
// are independent of the original, so repeated snoozes coexist and never
// collide with a re-ingested original.
func Snooze(key string, n int) string {
	return fmt.Sprintf("%s#snooze-%d", key, n)
}

// IsSnooze reports whether a trigger key belongs to the snooze family.
func IsSnooze(key string) bool {
	return strings.Contains(key, "#snooze-")
}
