package eventkey_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meetsentinel/meetsentinel/eventkey"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{
			name:     "already normal",
			title:    "weekly sync",
			expected: "weekly sync",
		},
		{
			name:     "mixed case",
			title:    "Weekly Sync",
			expected: "weekly sync",
		},
		{
			name:     "extra whitespace",
			title:    "  Weekly \t  Sync \n",
			expected: "weekly sync",
		},
		{
			name:     "empty",
			title:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, eventkey.NormalizeTitle(tt.title))
		})
	}
}

func TestForEvent(t *testing.T) {
	t.Run("same minute coalesces", func(t *testing.T) {
		base := time.Date(2025, 3, 10, 9, 0, 5, 0, time.UTC)
		other := time.Date(2025, 3, 10, 9, 0, 59, 0, time.UTC)

		assert.Equal(t,
			eventkey.ForEvent("Standup", base),
			eventkey.ForEvent("standup  ", other),
		)
	})

	t.Run("different minute differs", func(t *testing.T) {
		base := time.Date(2025, 3, 10, 9, 0, 59, 0, time.UTC)
		next := time.Date(2025, 3, 10, 9, 1, 0, 0, time.UTC)

		assert.NotEqual(t,
			eventkey.ForEvent("standup", base),
			eventkey.ForEvent("standup", next),
		)
	})

	t.Run("stable across calls", func(t *testing.T) {
		at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
		assert.Equal(t, eventkey.ForEvent("1:1", at), eventkey.ForEvent("1:1", at))
	})
}

func TestSnooze(t *testing.T) {
	key := eventkey.ForEvent("standup", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	first := eventkey.Snooze(key, 1)
	second := eventkey.Snooze(key, 2)

	assert.NotEqual(t, key, first)
	assert.NotEqual(t, first, second)
	assert.True(t, eventkey.IsSnooze(first))
	assert.False(t, eventkey.IsSnooze(key))
}
