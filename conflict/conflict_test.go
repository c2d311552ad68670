package conflict_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetsentinel/meetsentinel/conflict"
	"github.com/meetsentinel/meetsentinel/models"
)

// day is an arbitrary upcoming day so events pass the upcoming-only filter.
var day = time.Now().Add(24 * time.Hour).Truncate(time.Hour)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func event(key string, start, end time.Time) models.CanonicalEvent {
	return models.CanonicalEvent{
		Event: models.Event{Title: key, StartTime: start, EndTime: end},
		Key:   key,
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name     string
		a, b     models.CanonicalEvent
		expected bool
	}{
		{
			name:     "partial overlap",
			a:        event("a", at(9, 0), at(10, 0)),
			b:        event("b", at(9, 30), at(10, 30)),
			expected: true,
		},
		{
			name:     "containment",
			a:        event("a", at(9, 0), at(11, 0)),
			b:        event("b", at(9, 30), at(10, 0)),
			expected: true,
		},
		{
			name:     "back to back does not conflict",
			a:        event("a", at(9, 0), at(10, 0)),
			b:        event("b", at(10, 0), at(11, 0)),
			expected: false,
		},
		{
			name:     "disjoint",
			a:        event("a", at(9, 0), at(10, 0)),
			b:        event("b", at(11, 0), at(12, 0)),
			expected: false,
		},
		{
			name:     "missing end defaults to one hour",
			a:        event("a", at(9, 0), time.Time{}),
			b:        event("b", at(9, 45), at(10, 30)),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, conflict.Overlap(&tt.a, &tt.b))
			assert.Equal(t, tt.expected, conflict.Overlap(&tt.b, &tt.a))
		})
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name     string
		a, b     models.CanonicalEvent
		expected models.Severity
	}{
		{
			name:     "identical starts are high",
			a:        event("a", at(9, 0), at(9, 10)),
			b:        event("b", at(9, 0), at(11, 0)),
			expected: models.SeverityHigh,
		},
		{
			name:     "over thirty minutes is high",
			a:        event("a", at(9, 0), at(10, 0)),
			b:        event("b", at(9, 15), at(10, 30)),
			expected: models.SeverityHigh,
		},
		{
			name:     "exactly thirty minutes is medium",
			a:        event("a", at(9, 0), at(10, 0)),
			b:        event("b", at(9, 30), at(10, 30)),
			expected: models.SeverityMedium,
		},
		{
			name:     "exactly fifteen minutes is low",
			a:        event("a", at(9, 0), at(10, 0)),
			b:        event("b", at(9, 45), at(10, 30)),
			expected: models.SeverityLow,
		},
		{
			name:     "ten minutes is low",
			a:        event("a", at(9, 0), at(10, 0)),
			b:        event("b", at(9, 50), at(10, 30)),
			expected: models.SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, conflict.SeverityOf(&tt.a, &tt.b))
		})
	}
}

func TestDetectAndAnnotate(t *testing.T) {
	a := event("a", at(9, 0), at(10, 0))
	b := event("b", at(9, 30), at(10, 30))
	c := event("c", at(9, 50), at(10, 30))

	conflicts := conflict.Detect([]models.CanonicalEvent{a, b, c})
	require.Len(t, conflicts, 3)

	bySeverity := make(map[string]models.Severity)
	for _, cf := range conflicts {
		bySeverity[cf.A+"/"+cf.B] = cf.Severity
	}

	assert.Equal(t, models.SeverityMedium, bySeverity["a/b"])
	assert.Equal(t, models.SeverityLow, bySeverity["a/c"])
	assert.Equal(t, models.SeverityHigh, bySeverity["b/c"])

	annotated := conflict.Annotate([]models.CanonicalEvent{a, b, c})
	require.Len(t, annotated, 3)

	counts := make(map[string]int)
	for _, ev := range annotated {
		assert.True(t, ev.HasConflict)
		counts[ev.Key] = ev.ConflictCount
	}

	// Every pair here overlaps (even a/c share ten minutes), so each event
	// counts the other two.
	assert.Equal(t, 2, counts["a"])
	assert.Equal(t, 2, counts["b"])
	assert.Equal(t, 2, counts["c"])
}

func TestAnnotateCountsOverlappingEvents(t *testing.T) {
	// b overlaps both neighbors; a and c only touch b.
	a := event("a", at(9, 0), at(10, 0))
	b := event("b", at(9, 55), at(10, 30))
	c := event("c", at(10, 15), at(11, 0))

	annotated := conflict.Annotate([]models.CanonicalEvent{a, b, c})
	require.Len(t, annotated, 3)

	counts := make(map[string]int)
	for _, ev := range annotated {
		counts[ev.Key] = ev.ConflictCount
	}

	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 2, counts["b"])
	assert.Equal(t, 1, counts["c"])
}

func TestDetectSkipsPastEvents(t *testing.T) {
	past := event("past", time.Now().Add(-3*time.Hour), time.Now().Add(-2*time.Hour))
	alsoPast := event("also-past", time.Now().Add(-150*time.Minute), time.Now().Add(-90*time.Minute))

	assert.Empty(t, conflict.Detect([]models.CanonicalEvent{past, alsoPast}))
}

func TestAnnotateDoesNotMutateInput(t *testing.T) {
	in := []models.CanonicalEvent{
		event("a", at(9, 0), at(10, 0)),
		event("b", at(9, 30), at(10, 30)),
	}

	_ = conflict.Annotate(in)

	assert.False(t, in[0].HasConflict)
	assert.Zero(t, in[0].ConflictCount)
}
