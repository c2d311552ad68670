// Package providerapi fetches meetings from a connected calendar provider's
// HTTP API using managed bearer credentials.
package providerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/models"
	"github.com/meetsentinel/meetsentinel/producers"
)

var _ producers.Producer = (*API)(nil)

// TokenSource yields a usable access token for a provider, or nil when the
// provider is not connected.
type TokenSource interface {
	GetValidToken(ctx context.Context, provider string) (*models.TokenRecord, error)
}

// API polls one provider's events endpoint. When the provider has no usable
// credential the fetch yields an empty batch rather than an error, so one
// disconnected account never blocks the other producers.
type API struct {
	provider string
	source   models.Source
	url      string
	tokens   TokenSource
	client   *http.Client
	logger   *zap.Logger
}

type Option func(*API)

func WithHTTPClient(c *http.Client) Option {
	return func(a *API) {
		a.client = c
	}
}

func New(provider, url string, source models.Source, tokens TokenSource, logger *zap.Logger, opts ...Option) *API {
	a := &API{
		provider: provider,
		source:   source,
		url:      url,
		tokens:   tokens,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *API) Source() models.Source {
	return a.source
}

func (a *API) Fetch(ctx context.Context) ([]models.Event, error) {
	rec, err := a.tokens.GetValidToken(ctx, a.provider)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain token for %s: %w", a.provider, err)
	}

	if rec == nil {
		a.logger.Debug("provider not connected, skipping fetch", zap.String("provider", a.provider))
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", a.provider, err)
	}

	req.Header.Set("Authorization", "Bearer "+rec.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events from %s: %w", a.provider, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s events endpoint returned status %d", a.provider, resp.StatusCode)
	}

	var payload struct {
		Events []models.Event `json:"events"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s events: %w", a.provider, err)
	}

	out := payload.Events[:0]

	for i := range payload.Events {
		ev := payload.Events[i]
		ev.Source = a.source

		if err := ev.Validate(); err != nil {
			a.logger.Debug("dropping malformed event",
				zap.String("provider", a.provider),
				zap.String("title", ev.Title),
				zap.Error(err))

			continue
		}

		out = append(out, ev)
	}

	return out, nil
}
