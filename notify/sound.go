package notify

import (
	"context"
	"sync"

	"github.com/meetsentinel/meetsentinel/models"
)

// soundChannel plays a short audio cue through a lazily-created rendering
// surface. If a send fails (the surface can die with the audio device), the
// surface is torn down and recreated once before giving up.
type soundChannel struct {
	mu      sync.Mutex
	factory CueSurfaceFactory
	surface CueSurface
}

// NewSoundChannel wraps the audio cue surface factory.
func NewSoundChannel(factory CueSurfaceFactory) Channel {
	return &soundChannel{factory: factory}
}

func (c *soundChannel) Name() string { return "sound" }

func (c *soundChannel) Enabled(cfg models.ReminderConfig) bool { return cfg.PlaySound }

func (c *soundChannel) Send(ctx context.Context, _ models.CanonicalEvent, _ models.ReminderConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	surface, err := c.ensureSurface()
	if err != nil {
		return err
	}

	err = surface.PlayCue(ctx)
	if err == nil {
		return nil
	}

	// one recreate attempt, then give up
	c.dropSurface()

	surface, ferr := c.ensureSurface()
	if ferr != nil {
		return ferr
	}

	return surface.PlayCue(ctx)
}

func (c *soundChannel) ensureSurface() (CueSurface, error) {
	if c.surface != nil {
		return c.surface, nil
	}

	surface, err := c.factory()
	if err != nil {
		return nil, err
	}

	c.surface = surface

	return surface, nil
}

func (c *soundChannel) dropSurface() {
	if c.surface != nil {
		_ = c.surface.Close()
		c.surface = nil
	}
}
