// Package web exposes the local HTTP API: event ingestion, reminder actions
// and provider status.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/models"
)

// Scheduler is the slice of the reminder scheduler the API drives.
type Scheduler interface {
	SyncEvents(ctx context.Context, incoming []models.Event, connectedProviders map[string]bool) error
	Decline(ctx context.Context, key string) error
	Snooze(ctx context.Context, ev models.CanonicalEvent, delay time.Duration) error
	CanonicalEvents(ctx context.Context) ([]models.CanonicalEvent, error)
	SetReminderConfig(ctx context.Context, cfg models.ReminderConfig) error
}

// TokenManager is the slice of the credential manager the API drives.
type TokenManager interface {
	Connected(ctx context.Context, provider string) bool
	ConnectedProviders(ctx context.Context) map[string]bool
	SetToken(ctx context.Context, rec models.TokenRecord) error
}

// Resync asks the runner to pull all producers now instead of waiting for
// the next poll tick.
type Resync func(ctx context.Context) error

type Config struct {
	Addr      string
	Debug     bool
	Scheduler Scheduler
	Tokens    TokenManager
	Resync    Resync
	Logger    *zap.Logger
}

type Server struct {
	cfg Config
	e   *echo.Echo
}

func New(cfg Config) *Server {
	e := echo.New()
	e.Debug = cfg.Debug
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		cfg: cfg,
		e:   e,
	}

	api := e.Group("/api")
	api.GET("/events", s.listEvents)
	api.POST("/events", s.ingestEvents)
	api.POST("/decline", s.decline)
	api.POST("/snooze", s.snooze)
	api.POST("/resync", s.resync)
	api.PUT("/settings/reminders", s.setReminderConfig)
	api.GET("/providers/:provider/status", s.providerStatus)
	api.POST("/providers/:provider/token", s.setToken)

	return s
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.e.Shutdown(shutdownCtx); err != nil {
			s.cfg.Logger.Warn("api shutdown failed", zap.Error(err))
		}
	}()

	err := s.e.Start(s.cfg.Addr)
	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) listEvents(c echo.Context) error {
	events, err := s.cfg.Scheduler.CanonicalEvents(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{"events": events})
}

func (s *Server) ingestEvents(c echo.Context) error {
	var req struct {
		Events []models.Event `json:"events"`
		Source models.Source  `json:"source"`
	}

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	// The batch-level source covers events that don't tag themselves; a
	// source-less event would dodge the scraped-drop policy.
	for i := range req.Events {
		if req.Events[i].Source == "" {
			req.Events[i].Source = req.Source
		}
	}

	ctx := c.Request().Context()

	err := s.cfg.Scheduler.SyncEvents(ctx, req.Events, s.cfg.Tokens.ConnectedProviders(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusAccepted)
}

func (s *Server) decline(c echo.Context) error {
	var req struct {
		Key string `json:"key"`
	}

	if err := c.Bind(&req); err != nil || req.Key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}

	if err := s.cfg.Scheduler.Decline(c.Request().Context(), req.Key); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) snooze(c echo.Context) error {
	var req struct {
		Key     string `json:"key"`
		Minutes int    `json:"minutes"`
	}

	if err := c.Bind(&req); err != nil || req.Key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}

	if req.Minutes <= 0 {
		req.Minutes = 5
	}

	ctx := c.Request().Context()

	events, err := s.cfg.Scheduler.CanonicalEvents(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	for _, ev := range events {
		if ev.Key != req.Key {
			continue
		}

		if err := s.cfg.Scheduler.Snooze(ctx, ev, time.Duration(req.Minutes)*time.Minute); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		return c.NoContent(http.StatusNoContent)
	}

	return echo.NewHTTPError(http.StatusNotFound, "unknown event key")
}

func (s *Server) resync(c echo.Context) error {
	if s.cfg.Resync == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "resync not wired")
	}

	if err := s.cfg.Resync(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusAccepted)
}

func (s *Server) setReminderConfig(c echo.Context) error {
	var cfg models.ReminderConfig

	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	if cfg.LeadMinutes <= 0 {
		cfg.LeadMinutes = models.DefaultReminderConfig().LeadMinutes
	}

	if err := s.cfg.Scheduler.SetReminderConfig(c.Request().Context(), cfg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, cfg)
}

func (s *Server) providerStatus(c echo.Context) error {
	provider := c.Param("provider")

	return c.JSON(http.StatusOK, map[string]any{
		"provider":  provider,
		"connected": s.cfg.Tokens.Connected(c.Request().Context(), provider),
	})
}

func (s *Server) setToken(c echo.Context) error {
	var rec models.TokenRecord

	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	rec.Provider = c.Param("provider")
	rec.Connected = true

	if err := s.cfg.Tokens.SetToken(c.Request().Context(), rec); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}
