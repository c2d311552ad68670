package notify

import (
	"context"

	"github.com/meetsentinel/meetsentinel/models"
)

// systemChannel is the unconditional OS notification. It carries a "Join"
// action when the meeting has a link.
type systemChannel struct {
	notifier Notifier
}

// NewSystemChannel wraps the OS notification primitive.
func NewSystemChannel(notifier Notifier) Channel {
	return &systemChannel{notifier: notifier}
}

func (c *systemChannel) Name() string { return "system" }

func (c *systemChannel) Enabled(models.ReminderConfig) bool { return true }

func (c *systemChannel) Send(ctx context.Context, ev models.CanonicalEvent, cfg models.ReminderConfig) error {
	n := Notification{
		Title: Title(cfg),
		Body:  ev.Title,
	}

	if ev.MeetingLink != "" {
		n.ActionLabel = "Join"
		n.ActionURL = ev.MeetingLink
	}

	return c.notifier.Notify(ctx, n)
}
