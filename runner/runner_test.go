package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapByWidth(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		expected []string
	}{
		{
			name:     "fits on one line",
			text:     "hello",
			width:    10,
			expected: []string{"hello"},
		},
		{
			name:     "breaks at width",
			text:     "abcdef",
			width:    3,
			expected: []string{"abc", "def"},
		},
		{
			name:     "empty text yields no lines",
			text:     "",
			width:    10,
			expected: nil,
		},
		{
			name:     "wide runes count double",
			text:     "ああ",
			width:    2,
			expected: []string{"あ", "あ"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, wrapByWidth(tt.text, tt.width))
		})
	}
}

func TestBanner(t *testing.T) {
	out := banner([]string{"hello world"}, 40)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[0], "╔"))
	assert.True(t, strings.HasSuffix(lines[0], "╗"))
	assert.Contains(t, lines[1], "hello world")
	assert.True(t, strings.HasPrefix(lines[2], "╚"))
	assert.True(t, strings.HasSuffix(lines[2], "╝"))
}

func TestBannerEnforcesMinimumWidth(t *testing.T) {
	out := banner([]string{"x"}, 5)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for _, line := range lines {
		assert.Equal(t, 20, len([]rune(line)))
	}
}
