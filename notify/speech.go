package notify

import (
	"context"
	"fmt"

	"github.com/meetsentinel/meetsentinel/models"
)

type speechChannel struct {
	speaker Speaker
}

// NewSpeechChannel wraps the speech synthesizer.
func NewSpeechChannel(speaker Speaker) Channel {
	return &speechChannel{speaker: speaker}
}

func (c *speechChannel) Name() string { return "speech" }

func (c *speechChannel) Enabled(cfg models.ReminderConfig) bool { return cfg.VoiceReminder }

func (c *speechChannel) Send(ctx context.Context, ev models.CanonicalEvent, cfg models.ReminderConfig) error {
	text := fmt.Sprintf("%s starts in %d minutes", ev.Title, cfg.LeadMinutes)

	return c.speaker.Speak(ctx, text)
}
