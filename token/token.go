// Package token keeps provider bearer credentials valid through proactive
// and reactive refresh with bounded retry. TokenRecords are owned here;
// other components only ever see a record this manager vouches for.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/kv"
	"github.com/meetsentinel/meetsentinel/models"
)

// ExpiryMargin is the safety margin applied before a token's nominal
// expiry: a token inside the margin is refreshed before use.
const ExpiryMargin = 5 * time.Minute

// ErrCredentialRevoked marks refresh failures retrying cannot fix.
var ErrCredentialRevoked = errors.New("refresh credential revoked")

// Endpoint is a provider's refresh endpoint and client credentials.
type Endpoint struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// ReconnectNotifier surfaces a user-facing "reconnect required" prompt when
// a provider's credentials die.
type ReconnectNotifier interface {
	ReconnectRequired(ctx context.Context, provider string)
}

// Manager maintains one TokenRecord per configured provider.
type Manager struct {
	store     kv.Store
	client    *http.Client
	endpoints map[string]Endpoint
	notifier  ReconnectNotifier
	logger    *zap.Logger

	maxAttempts    uint64
	initialBackoff time.Duration
	now            func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient overrides the HTTP client used for refresh calls.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.client = client
	}
}

// WithRetryPolicy overrides the refresh retry policy. Tests shrink the
// backoff so retries run without real delays.
func WithRetryPolicy(maxAttempts uint64, initialBackoff time.Duration) Option {
	return func(m *Manager) {
		m.maxAttempts = maxAttempts
		m.initialBackoff = initialBackoff
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store kv.Store, endpoints map[string]Endpoint, notifier ReconnectNotifier, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		client:         &http.Client{Timeout: 30 * time.Second},
		endpoints:      endpoints,
		notifier:       notifier,
		logger:         logger,
		maxAttempts:    3,
		initialBackoff: 500 * time.Millisecond,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// GetValidToken returns a usable token for the provider, refreshing first if
// the stored one is inside the expiry margin. Returns nil (with no error)
// when the provider is disconnected or refresh failed: callers treat nil as
// "skip authenticated work until the user reconnects".
func (m *Manager) GetValidToken(ctx context.Context, provider string) (*models.TokenRecord, error) {
	rec, err := m.load(ctx, provider)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if !rec.Connected {
		return nil, nil
	}

	if rec.ExpiresAt.After(m.now().Add(ExpiryMargin)) {
		return rec, nil
	}

	return m.refresh(ctx, rec)
}

// SetToken stores a freshly issued record, e.g. after the out-of-band OAuth
// handshake completes.
func (m *Manager) SetToken(ctx context.Context, rec models.TokenRecord) error {
	return m.save(ctx, &rec)
}

// Connected reports whether the provider currently has usable credentials.
func (m *Manager) Connected(ctx context.Context, provider string) bool {
	rec, err := m.load(ctx, provider)

	return err == nil && rec.Connected
}

// ConnectedProviders returns the connection status of every configured
// provider. The reconciler uses this to drop scraped duplicates for
// providers with a live API feed.
func (m *Manager) ConnectedProviders(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(m.endpoints))

	for provider := range m.endpoints {
		out[provider] = m.Connected(ctx, provider)
	}

	return out
}

// RefreshAll proactively refreshes every provider inside the expiry margin,
// so failures surface before a dependent call needs the token. Run on a
// fixed interval and on detected return-from-offline.
func (m *Manager) RefreshAll(ctx context.Context) {
	for provider := range m.endpoints {
		if _, err := m.GetValidToken(ctx, provider); err != nil {
			m.logger.Warn("proactive refresh failed",
				zap.String("provider", provider),
				zap.Error(err))
		}
	}
}

func (m *Manager) refresh(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	if rec.RefreshToken == "" {
		return m.disconnect(ctx, rec)
	}

	endpoint, ok := m.endpoints[rec.Provider]
	if !ok {
		return nil, fmt.Errorf("no endpoint configured for provider %s", rec.Provider)
	}

	policy := backoff.WithMaxRetries(backoff.WithContext(newExponential(m.initialBackoff), ctx), m.maxAttempts-1)

	resp, err := backoff.RetryWithData(func() (*refreshResponse, error) {
		resp, err := m.refreshOnce(ctx, endpoint, rec.RefreshToken)
		if errors.Is(err, ErrCredentialRevoked) {
			// retrying cannot help: abort immediately
			return nil, backoff.Permanent(err)
		}

		return resp, err
	}, policy)
	if err != nil {
		m.logger.Warn("token refresh failed",
			zap.String("provider", rec.Provider),
			zap.Error(err))

		return m.disconnect(ctx, rec)
	}

	rec.AccessToken = resp.AccessToken
	rec.ExpiresAt = m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	rec.Connected = true

	// keep the old refresh credential unless the provider issued a new one
	if resp.RefreshToken != "" {
		rec.RefreshToken = resp.RefreshToken
	}

	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}

	m.logger.Info("token refreshed",
		zap.String("provider", rec.Provider),
		zap.Time("expires_at", rec.ExpiresAt))

	return rec, nil
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
}

// nonRetryable are OAuth error codes meaning the credential itself is
// invalid, expired or revoked.
var nonRetryable = map[string]bool{
	"invalid_grant":       true,
	"invalid_client":      true,
	"unauthorized_client": true,
	"access_denied":       true,
}

func (m *Manager) refreshOnce(ctx context.Context, endpoint Endpoint, refreshToken string) (*refreshResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {endpoint.ClientID},
		"client_secret": {endpoint.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var resp refreshResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("malformed refresh response: %w", err)
	}

	if resp.Error != "" {
		if nonRetryable[resp.Error] {
			return nil, fmt.Errorf("%w: %s", ErrCredentialRevoked, resp.Error)
		}

		return nil, fmt.Errorf("refresh rejected: %s", resp.Error)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh endpoint returned %d", httpResp.StatusCode)
	}

	if resp.AccessToken == "" {
		return nil, errors.New("refresh response missing access token")
	}

	return &resp, nil
}

func (m *Manager) disconnect(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	rec.Connected = false

	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}

	if m.notifier != nil {
		m.notifier.ReconnectRequired(ctx, rec.Provider)
	}

	return nil, nil
}

func (m *Manager) load(ctx context.Context, provider string) (*models.TokenRecord, error) {
	raw, err := m.store.Get(ctx, kv.PrefixToken+provider)
	if err != nil {
		return nil, err
	}

	var rec models.TokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("corrupt token record for %s: %w", provider, err)
	}

	return &rec, nil
}

func (m *Manager) save(ctx context.Context, rec *models.TokenRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode token record: %w", err)
	}

	if err := m.store.Set(ctx, kv.PrefixToken+rec.Provider, raw); err != nil {
		return fmt.Errorf("failed to persist token record: %w", err)
	}

	return nil
}

func newExponential(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.RandomizationFactor = 0
	b.Multiplier = 2

	return b
}
