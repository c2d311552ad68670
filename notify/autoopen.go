package notify

import (
	"context"
	"time"

	"github.com/meetsentinel/meetsentinel/models"
)

// autoOpenChannel navigates to the meeting link after a short fixed delay,
// so the other channels surface first.
type autoOpenChannel struct {
	navigator Navigator
	delay     time.Duration
}

// AutoOpenOption configures the auto-open channel.
type AutoOpenOption func(*autoOpenChannel)

// WithOpenDelay overrides the pre-navigation delay.
func WithOpenDelay(d time.Duration) AutoOpenOption {
	return func(c *autoOpenChannel) {
		c.delay = d
	}
}

// NewAutoOpenChannel wraps the link navigator.
func NewAutoOpenChannel(navigator Navigator, opts ...AutoOpenOption) Channel {
	c := &autoOpenChannel{
		navigator: navigator,
		delay:     2 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *autoOpenChannel) Name() string { return "autoopen" }

func (c *autoOpenChannel) Enabled(cfg models.ReminderConfig) bool { return cfg.AutoOpen }

func (c *autoOpenChannel) Send(ctx context.Context, ev models.CanonicalEvent, _ models.ReminderConfig) error {
	if ev.MeetingLink == "" {
		return nil
	}

	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay):
		}
	}

	return c.navigator.OpenURL(ctx, ev.MeetingLink)
}
