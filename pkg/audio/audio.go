// Package audio renders the reminder audio cue through oto. The hardware
// context can only be created once per process, so it is a lazily
// initialized singleton; surfaces borrow it and own only their players.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	sampleRate = 44100
	cueFreq    = 880.0
	cueBeep    = 150 * time.Millisecond
	cueGap     = 100 * time.Millisecond
)

var (
	globalCtx     *oto.Context
	globalCtxErr  error
	globalCtxOnce sync.Once
)

func audioContext() (*oto.Context, error) {
	globalCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			globalCtxErr = err

			return
		}

		// wait for the hardware devices to be ready
		<-readyChan

		globalCtx = ctx
	})

	return globalCtx, globalCtxErr
}

// Surface is one audio cue rendering surface.
type Surface struct {
	ctx *oto.Context
	pcm []byte

	mu     sync.Mutex
	closed bool
}

// NewSurface prepares a surface over the shared audio context.
func NewSurface() (*Surface, error) {
	ctx, err := audioContext()
	if err != nil {
		return nil, err
	}

	return &Surface{
		ctx: ctx,
		pcm: cuePCM(),
	}, nil
}

// PlayCue plays the double-beep cue, blocking until it finishes or the
// context is cancelled.
func (s *Surface) PlayCue(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return errors.New("audio surface closed")
	}
	s.mu.Unlock()

	player := s.ctx.NewPlayer(bytes.NewReader(s.pcm))
	defer player.Close()

	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}

// Close marks the surface unusable. The shared hardware context stays up;
// oto contexts cannot be torn down.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// cuePCM synthesizes the cue: two short sine beeps with a gap.
func cuePCM() []byte {
	beepSamples := int(float64(sampleRate) * cueBeep.Seconds())
	gapSamples := int(float64(sampleRate) * cueGap.Seconds())

	buf := &bytes.Buffer{}

	writeBeep := func() {
		for i := 0; i < beepSamples; i++ {
			// fade in/out over 10ms to avoid clicks
			envelope := 1.0

			fade := sampleRate / 100
			if i < fade {
				envelope = float64(i) / float64(fade)
			} else if beepSamples-i < fade {
				envelope = float64(beepSamples-i) / float64(fade)
			}

			v := math.Sin(2 * math.Pi * cueFreq * float64(i) / sampleRate)
			sample := int16(v * envelope * 0.6 * math.MaxInt16)

			_ = binary.Write(buf, binary.LittleEndian, sample)
		}
	}

	writeBeep()

	for i := 0; i < gapSamples; i++ {
		_ = binary.Write(buf, binary.LittleEndian, int16(0))
	}

	writeBeep()

	return buf.Bytes()
}
