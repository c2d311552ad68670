// Package sentinelrunner wires the stores, timers, producers, channels and
// API into a single long-running service.
package sentinelrunner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meetsentinel/meetsentinel/kv"
	"github.com/meetsentinel/meetsentinel/kv/memstore"
	"github.com/meetsentinel/meetsentinel/kv/redisstore"
	"github.com/meetsentinel/meetsentinel/kv/sqlitestore"
	"github.com/meetsentinel/meetsentinel/models"
	"github.com/meetsentinel/meetsentinel/notify"
	"github.com/meetsentinel/meetsentinel/pkg/audio"
	"github.com/meetsentinel/meetsentinel/pkg/platform"
	"github.com/meetsentinel/meetsentinel/pkg/speech"
	"github.com/meetsentinel/meetsentinel/producers"
	"github.com/meetsentinel/meetsentinel/producers/icsfeed"
	"github.com/meetsentinel/meetsentinel/producers/providerapi"
	"github.com/meetsentinel/meetsentinel/redis"
	redisconfig "github.com/meetsentinel/meetsentinel/redis/config"
	"github.com/meetsentinel/meetsentinel/runner"
	"github.com/meetsentinel/meetsentinel/sched"
	"github.com/meetsentinel/meetsentinel/tlmt"
	"github.com/meetsentinel/meetsentinel/token"
	"github.com/meetsentinel/meetsentinel/web"
)

const probeInterval = 30 * time.Second

type sentinelRunner struct {
	cfg       *runner.Config
	logger    *zap.Logger
	store     kv.Store
	timers    *redis.Timers
	consumer  *redis.Server
	scheduler *sched.Scheduler
	tokens    *token.Manager
	prober    *token.Prober
	producers []producers.Producer
	api       *web.Server
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeService && cfg.RunMode != runner.RunModeSyncOnce {
		return nil, runner.ErrInvalidRunMode
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	redisCfg, err := redisconfig.NewRedisConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load redis config: %w", err)
	}

	timers, err := redis.NewTimers(redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect trigger facility: %w", err)
	}

	desktop := platform.NewDesktop(logger)

	tokens := token.NewManager(store, endpointsFromConfig(cfg), &reconnectPrompt{
		notifier: desktop,
		logger:   logger,
	}, logger)

	dispatcher := notify.NewDispatcher(logger, channels(desktop, logger)...)

	scheduler := sched.New(store, timers, dispatcher, logger)

	r := &sentinelRunner{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		timers:    timers,
		consumer:  redis.NewServer(redisCfg, logger),
		scheduler: scheduler,
		tokens:    tokens,
		producers: buildProducers(cfg, tokens, logger),
	}

	r.prober = token.NewProber(cfg.ProbeURL, func(ctx context.Context) {
		logger.Info("connectivity returned, resyncing")
		tokens.RefreshAll(ctx)

		if err := r.resync(ctx); err != nil {
			logger.Warn("resync after reconnect failed", zap.Error(err))
		}
	}, logger)

	r.api = web.New(web.Config{
		Addr:      cfg.Addr,
		Debug:     cfg.Debug,
		Scheduler: scheduler,
		Tokens:    tokens,
		Resync:    r.resync,
		Logger:    logger,
	})

	return r, nil
}

func (r *sentinelRunner) Run(ctx context.Context) error {
	evt := tlmt.NewEvent("service.start", map[string]any{
		"mode":  r.cfg.RunMode,
		"store": r.cfg.Store,
		"feeds": len(r.cfg.ICSFeeds),
	})

	if err := runner.Telemetry().Send(ctx, evt); err != nil {
		r.logger.Debug("telemetry send failed", zap.Error(err))
	}

	// Re-derive triggers from the persisted canonical set before anything
	// else. Timers lost while the service was down come back here.
	if err := r.scheduler.Rewalk(ctx); err != nil {
		return fmt.Errorf("failed to rewalk canonical events: %w", err)
	}

	if err := r.resync(ctx); err != nil {
		r.logger.Warn("initial sync failed", zap.Error(err))
	}

	if r.cfg.RunMode == runner.RunModeSyncOnce {
		return nil
	}

	fire := func(ctx context.Context, name string) error {
		_ = runner.Telemetry().Send(ctx, tlmt.NewEvent("reminder.fired", nil))

		return r.scheduler.HandleFire(ctx, name)
	}

	if err := r.consumer.Start(fire); err != nil {
		return fmt.Errorf("failed to start trigger consumer: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.api.Start(gctx)
	})

	g.Go(func() error {
		return r.pollLoop(gctx)
	})

	g.Go(func() error {
		return r.refreshLoop(gctx)
	})

	g.Go(func() error {
		return r.probeLoop(gctx)
	})

	err := g.Wait()

	r.consumer.Shutdown()

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (r *sentinelRunner) Close(context.Context) error {
	if err := r.timers.Close(); err != nil {
		r.logger.Warn("failed to close trigger facility", zap.Error(err))
	}

	_ = r.logger.Sync()

	return r.store.Close()
}

// resync pulls every producer and feeds the combined batch through the
// scheduler. A failing producer is logged and skipped, never fatal.
func (r *sentinelRunner) resync(ctx context.Context) error {
	_ = runner.Telemetry().Send(ctx, tlmt.NewEvent("resync", map[string]any{
		"producers": len(r.producers),
	}))

	var incoming []models.Event

	for _, p := range r.producers {
		events, err := p.Fetch(ctx)
		if err != nil {
			r.logger.Warn("producer fetch failed",
				zap.String("source", string(p.Source())),
				zap.Error(err))

			continue
		}

		incoming = append(incoming, events...)
	}

	return r.scheduler.SyncEvents(ctx, incoming, r.tokens.ConnectedProviders(ctx))
}

func (r *sentinelRunner) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.resync(ctx); err != nil {
				r.logger.Warn("periodic sync failed", zap.Error(err))
			}
		}
	}
}

func (r *sentinelRunner) refreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.TokenRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tokens.RefreshAll(ctx)
		}
	}
}

func (r *sentinelRunner) probeLoop(ctx context.Context) error {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.prober.Probe(ctx)
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func newStore(cfg *runner.Config) (kv.Store, error) {
	switch cfg.Store {
	case runner.StoreSqlite:
		return sqlitestore.New(cfg.SqlitePath)
	case runner.StoreMemory:
		return memstore.New(), nil
	default:
		redisCfg, err := redisconfig.NewRedisConfig()
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return redisstore.New(ctx, redisCfg.GetRedisAddr(), redisCfg.Password, redisCfg.DB)
	}
}

func endpointsFromConfig(cfg *runner.Config) map[string]token.Endpoint {
	endpoints := make(map[string]token.Endpoint)

	if cfg.GoogleClientID != "" {
		endpoints["google"] = token.Endpoint{
			TokenURL:     cfg.GoogleTokenURL,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		}
	}

	if cfg.OutlookClientID != "" {
		endpoints["outlook"] = token.Endpoint{
			TokenURL:     cfg.OutlookTokenURL,
			ClientID:     cfg.OutlookClientID,
			ClientSecret: cfg.OutlookClientSecret,
		}
	}

	return endpoints
}

func buildProducers(cfg *runner.Config, tokens *token.Manager, logger *zap.Logger) []producers.Producer {
	var out []producers.Producer

	for _, url := range cfg.ICSFeeds {
		out = append(out, icsfeed.New(url, logger))
	}

	if cfg.GoogleEventsURL != "" {
		out = append(out, providerapi.New("google", cfg.GoogleEventsURL, models.SourceGoogleAPI, tokens, logger))
	}

	if cfg.OutlookEventsURL != "" {
		out = append(out, providerapi.New("outlook", cfg.OutlookEventsURL, models.SourceOutlookAPI, tokens, logger))
	}

	return out
}

func channels(desktop *platform.Desktop, logger *zap.Logger) []notify.Channel {
	out := []notify.Channel{
		notify.NewSystemChannel(desktop),
		notify.NewPopupChannel(desktop),
		notify.NewSoundChannel(func() (notify.CueSurface, error) {
			return audio.NewSurface()
		}),
	}

	if speaker, err := speech.New(); err == nil {
		out = append(out, notify.NewSpeechChannel(speaker))
	} else {
		logger.Info("no speech synthesizer found, voice reminders unavailable")
	}

	out = append(out,
		notify.NewBadgeChannel(desktop),
		notify.NewAutoOpenChannel(desktop),
	)

	return out
}

// reconnectPrompt surfaces credential loss as an OS notification.
type reconnectPrompt struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

func (p *reconnectPrompt) ReconnectRequired(ctx context.Context, provider string) {
	err := p.notifier.Notify(ctx, notify.Notification{
		Title: "Calendar disconnected",
		Body:  fmt.Sprintf("Reconnect your %s account to keep reminders flowing", provider),
	})
	if err != nil {
		p.logger.Warn("failed to surface reconnect prompt",
			zap.String("provider", provider),
			zap.Error(err))
	}
}
