// Package speech renders synthesized speech through whatever system TTS
// binary is available.
package speech

import (
	"context"
	"errors"
	"os/exec"
)

var ErrNoSynthesizer = errors.New("no speech synthesizer found")

// candidates in preference order; say is macOS, the rest are Linux.
var candidates = []string{"say", "spd-say", "espeak"}

// Synthesizer speaks text via an external TTS command.
type Synthesizer struct {
	binary string
}

// New locates a TTS binary on PATH.
func New() (*Synthesizer, error) {
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return &Synthesizer{binary: path}, nil
		}
	}

	return nil, ErrNoSynthesizer
}

func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	return exec.CommandContext(ctx, s.binary, text).Run()
}
