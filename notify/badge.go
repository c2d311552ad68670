package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/meetsentinel/meetsentinel/models"
)

const defaultFlashSteps = 6

// badgeChannel flashes the badge surface between two colors and leaves it
// in a persistent urgent state showing the lead time.
type badgeChannel struct {
	badge         Badge
	flashInterval time.Duration
}

// BadgeOption configures the badge channel.
type BadgeOption func(*badgeChannel)

// WithFlashInterval overrides the delay between flash steps. Tests set it to
// zero to run the sequence without real waits.
func WithFlashInterval(d time.Duration) BadgeOption {
	return func(c *badgeChannel) {
		c.flashInterval = d
	}
}

// NewBadgeChannel wraps the badge-state primitive.
func NewBadgeChannel(badge Badge, opts ...BadgeOption) Channel {
	c := &badgeChannel{
		badge:         badge,
		flashInterval: 250 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *badgeChannel) Name() string { return "badge" }

func (c *badgeChannel) Enabled(models.ReminderConfig) bool { return true }

func (c *badgeChannel) Send(ctx context.Context, _ models.CanonicalEvent, cfg models.ReminderConfig) error {
	colors := [2]string{"#d93025", "#fbbc04"}

	for i := 0; i < defaultFlashSteps; i++ {
		state := BadgeState{Color: colors[i%2]}

		if err := c.badge.SetState(ctx, state); err != nil {
			return err
		}

		if err := c.wait(ctx); err != nil {
			return err
		}
	}

	return c.badge.SetState(ctx, BadgeState{
		Color:  colors[0],
		Text:   fmt.Sprintf("%dm", cfg.LeadMinutes),
		Urgent: true,
	})
}

func (c *badgeChannel) wait(ctx context.Context) error {
	if c.flashInterval <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.flashInterval):
		return nil
	}
}
