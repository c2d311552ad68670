package notify

import (
	"context"

	"github.com/meetsentinel/meetsentinel/models"
)

type popupChannel struct {
	surface PopupSurface
}

// NewPopupChannel wraps the focus-stealing popup primitive.
func NewPopupChannel(surface PopupSurface) Channel {
	return &popupChannel{surface: surface}
}

func (c *popupChannel) Name() string { return "popup" }

func (c *popupChannel) Enabled(cfg models.ReminderConfig) bool { return cfg.ShowPopup }

func (c *popupChannel) Send(ctx context.Context, ev models.CanonicalEvent, cfg models.ReminderConfig) error {
	return c.surface.ShowPopup(ctx, Popup{
		Title: Title(cfg),
		Body:  ev.Title,
		Link:  ev.MeetingLink,
	})
}
