package token

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Prober watches connectivity so a return from offline triggers an
// immediate proactive refresh instead of waiting for the next interval.
type Prober struct {
	client   *http.Client
	probeURL string
	onReturn func(ctx context.Context)
	logger   *zap.Logger

	mu     sync.Mutex
	online bool
}

// NewProber builds a prober that calls onReturn on every offline→online
// transition.
func NewProber(probeURL string, onReturn func(ctx context.Context), logger *zap.Logger) *Prober {
	return &Prober{
		client:   &http.Client{Timeout: 5 * time.Second},
		probeURL: probeURL,
		onReturn: onReturn,
		logger:   logger,
		online:   true,
	}
}

// Probe checks connectivity once and fires the return-from-offline hook on
// a transition. Returns the current online state.
func (p *Prober) Probe(ctx context.Context) bool {
	online := p.check(ctx)

	p.mu.Lock()
	wasOnline := p.online
	p.online = online
	p.mu.Unlock()

	if online && !wasOnline {
		p.logger.Info("connectivity restored, refreshing tokens")
		p.onReturn(ctx)
	}

	return online
}

func (p *Prober) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.probeURL, http.NoBody)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}

	_ = resp.Body.Close()

	return true
}
