// Package notify dispatches a fired reminder across several independent
// attention channels. Channels fail independently: one channel's error is
// caught, logged and aggregated, and never prevents the others from running.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/models"
)

// Channel is one attention surface a reminder can be delivered through.
type Channel interface {
	Name() string

	// Enabled reports whether the user's settings turn this channel on.
	Enabled(cfg models.ReminderConfig) bool

	Send(ctx context.Context, ev models.CanonicalEvent, cfg models.ReminderConfig) error
}

// Dispatcher fans a reminder out to every enabled channel in order. The
// returned error aggregates individual channel failures; callers log it and
// move on, they never retry.
type Dispatcher struct {
	channels []Channel
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		logger:   logger,
	}
}

// Dispatch delivers the reminder through every enabled channel.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.CanonicalEvent, cfg models.ReminderConfig) error {
	var errs error

	for _, ch := range d.channels {
		if !ch.Enabled(cfg) {
			continue
		}

		if err := ch.Send(ctx, ev, cfg); err != nil {
			d.logger.Warn("notification channel failed",
				zap.String("channel", ch.Name()),
				zap.String("trigger", ev.Key),
				zap.Error(err))

			errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}

	return errs
}

// Title renders the reminder headline shown on every channel.
func Title(cfg models.ReminderConfig) string {
	return fmt.Sprintf("Meeting starting in %dm", cfg.LeadMinutes)
}
