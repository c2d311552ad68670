// Package conflict detects pairwise time overlaps between canonical events
// and grades their severity.
package conflict

import (
	"time"

	"github.com/meetsentinel/meetsentinel/models"
)

// Overlap reports whether two events collide in time. Intervals are
// half-open: a meeting ending exactly when another starts does not conflict.
func Overlap(a, b *models.CanonicalEvent) bool {
	return a.StartTime.Before(b.EndOrDefault()) && b.StartTime.Before(a.EndOrDefault())
}

// OverlapDuration returns how long two events overlap, zero if they don't.
func OverlapDuration(a, b *models.CanonicalEvent) time.Duration {
	if !Overlap(a, b) {
		return 0
	}

	start := a.StartTime
	if b.StartTime.After(start) {
		start = b.StartTime
	}

	end := a.EndOrDefault()
	if b.EndOrDefault().Before(end) {
		end = b.EndOrDefault()
	}

	return end.Sub(start)
}

// SeverityOf grades an overlapping pair. Identical start instants are always
// high; otherwise severity follows the overlap duration (>30m high,
// >15m medium, else low).
func SeverityOf(a, b *models.CanonicalEvent) models.Severity {
	if a.StartTime.Equal(b.StartTime) {
		return models.SeverityHigh
	}

	switch d := OverlapDuration(a, b); {
	case d > 30*time.Minute:
		return models.SeverityHigh
	case d > 15*time.Minute:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Detect returns every pairwise conflict among upcoming events. Pairwise
// O(n²) is fine here: n is a day's worth of meetings.
func Detect(events []models.CanonicalEvent) []models.Conflict {
	upcoming := upcomingOnly(events, time.Now())

	var conflicts []models.Conflict

	for i := range upcoming {
		for j := i + 1; j < len(upcoming); j++ {
			a, b := &upcoming[i], &upcoming[j]
			if !Overlap(a, b) {
				continue
			}

			conflicts = append(conflicts, models.Conflict{
				A:        a.Key,
				B:        b.Key,
				Overlap:  OverlapDuration(a, b),
				Severity: SeverityOf(a, b),
			})
		}
	}

	return conflicts
}

// Annotate fills HasConflict and ConflictCount on each event from the number
// of other events it overlaps, excluding itself. Returns a new slice; the
// input is not mutated.
func Annotate(events []models.CanonicalEvent) []models.CanonicalEvent {
	out := make([]models.CanonicalEvent, len(events))
	copy(out, events)

	for i := range out {
		count := 0

		for j := range out {
			if i == j {
				continue
			}

			if Overlap(&out[i], &out[j]) {
				count++
			}
		}

		out[i].HasConflict = count > 0
		out[i].ConflictCount = count
	}

	return out
}

func upcomingOnly(events []models.CanonicalEvent, now time.Time) []models.CanonicalEvent {
	out := make([]models.CanonicalEvent, 0, len(events))

	for _, ev := range events {
		if ev.EndOrDefault().After(now) {
			out = append(out, ev)
		}
	}

	return out
}
