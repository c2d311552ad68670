// Package sched turns canonical events into durable, idempotent reminder
// triggers and drives the per-meeting state machine: Unscheduled →
// Scheduled → Fired → Consumed, with snoozes as independent triggers.
//
// Nothing in memory is authoritative. Every transition reads from and
// writes back to the persistent store, because the host may tear the
// process down between any two operations.
package sched

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/conflict"
	"github.com/meetsentinel/meetsentinel/dtimer"
	"github.com/meetsentinel/meetsentinel/eventkey"
	"github.com/meetsentinel/meetsentinel/kv"
	"github.com/meetsentinel/meetsentinel/models"
	"github.com/meetsentinel/meetsentinel/reconcile"
)

// Dispatcher delivers a fired reminder across the attention channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.CanonicalEvent, cfg models.ReminderConfig) error
}

// Scheduler owns the canonical-event set and the reminder triggers derived
// from it.
type Scheduler struct {
	store      kv.Store
	timers     dtimer.Facility
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source. Tests use this to exercise lead-time
// arithmetic without real delays.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(store kv.Store, timers dtimer.Facility, dispatcher Dispatcher, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:      store,
		timers:     timers,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SyncEvents ingests a batch of raw events from one producer:
// reconciliation, then conflict annotation, then persistence, then
// scheduling, in that order. The reconcile merge is commutative, so batches
// from different producers may arrive in any interleaving.
func (s *Scheduler) SyncEvents(ctx context.Context, incoming []models.Event, connectedProviders map[string]bool) error {
	existing, err := s.CanonicalEvents(ctx)
	if err != nil {
		return err
	}

	incoming = reconcile.DropScraped(incoming, connectedProviders)

	set := reconcile.Reconcile(existing, incoming)
	set = s.pruneEnded(set)
	set = conflict.Annotate(set)

	if err := s.saveCanonical(ctx, set); err != nil {
		return err
	}

	s.scheduleAll(ctx, set)

	return nil
}

// Rewalk re-attempts the Scheduled transition for the whole persisted
// canonical set. Run on startup: it recovers triggers lost if the timer
// facility itself lost state, and is a no-op for triggers that survived.
// In-flight fired reminders are not recoverable and count as consumed.
func (s *Scheduler) Rewalk(ctx context.Context) error {
	set, err := s.CanonicalEvents(ctx)
	if err != nil {
		return err
	}

	s.scheduleAll(ctx, set)

	return nil
}

func (s *Scheduler) scheduleAll(ctx context.Context, set []models.CanonicalEvent) {
	cfg := s.reminderConfig(ctx)

	for _, ev := range set {
		if err := s.scheduleOne(ctx, ev, cfg); err != nil {
			s.logger.Warn("failed to schedule reminder",
				zap.String("trigger", ev.Key),
				zap.Error(err))
		}
	}
}

func (s *Scheduler) scheduleOne(ctx context.Context, ev models.CanonicalEvent, cfg models.ReminderConfig) error {
	if ev.SelfDeclined() || s.isDeclined(ctx, ev.Key) {
		return nil
	}

	fireAt := ev.StartTime.Add(-time.Duration(cfg.LeadMinutes) * time.Minute)
	if !fireAt.After(s.now()) {
		return nil
	}

	exists, err := s.timers.Exists(ctx, ev.Key)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	// Snapshot before timer: the fire handler loads by trigger name, so the
	// snapshot must be readable the instant the timer exists.
	if err := s.saveSnapshot(ctx, ev.Key, ev); err != nil {
		return err
	}

	if err := s.timers.Create(ctx, ev.Key, fireAt); err != nil {
		return err
	}

	s.logger.Info("reminder scheduled",
		zap.String("trigger", ev.Key),
		zap.Time("fire_at", fireAt))

	return nil
}

// HandleFire is the durable-timer callback. It loads the snapshot by trigger
// name (not by producer event ID, which is not stable across producers),
// dispatches, and consumes the trigger. A missing snapshot is a soft miss:
// warn and no-op. Dispatch failures do not reschedule.
func (s *Scheduler) HandleFire(ctx context.Context, name string) error {
	ev, err := s.loadSnapshot(ctx, name)
	if errors.Is(err, kv.ErrNotFound) {
		s.logger.Warn("fired trigger has no snapshot", zap.String("trigger", name))

		return nil
	}

	if err != nil {
		return err
	}

	cfg := s.reminderConfig(ctx)

	if err := s.dispatcher.Dispatch(ctx, ev, cfg); err != nil {
		s.logger.Warn("reminder dispatch incomplete",
			zap.String("trigger", name),
			zap.Error(err))
	}

	return s.consume(ctx, name)
}

// Decline cancels a meeting's reminder from any state: the named timer is
// cleared and its snapshot deleted, and the key is remembered so later
// re-ingestion of the same meeting does not resurrect it.
func (s *Scheduler) Decline(ctx context.Context, key string) error {
	if err := s.timers.Clear(ctx, key); err != nil {
		return err
	}

	if err := s.consume(ctx, key); err != nil {
		return err
	}

	if err := s.store.Set(ctx, kv.PrefixDeclined+key, []byte("1")); err != nil {
		return fmt.Errorf("failed to persist decline: %w", err)
	}

	s.logger.Info("reminder declined", zap.String("trigger", key))

	return nil
}

// Snooze schedules a fresh trigger for the event after the given delay. The
// snooze trigger is keyed independently of the original (original key plus a
// persisted sequence number), so it never collides with a re-ingested
// original and repeated snoozes coexist.
func (s *Scheduler) Snooze(ctx context.Context, ev models.CanonicalEvent, delay time.Duration) error {
	if ev.Key == "" {
		ev.Key = eventkey.ForEvent(ev.Title, ev.StartTime)
	}

	seq, err := s.nextSnoozeSeq(ctx, ev.Key)
	if err != nil {
		return err
	}

	name := eventkey.Snooze(ev.Key, seq)

	if err := s.saveSnapshot(ctx, name, ev); err != nil {
		return err
	}

	if err := s.timers.Create(ctx, name, s.now().Add(delay)); err != nil {
		return err
	}

	s.logger.Info("reminder snoozed",
		zap.String("trigger", name),
		zap.Duration("delay", delay))

	return nil
}

// CanonicalEvents returns the persisted canonical set.
func (s *Scheduler) CanonicalEvents(ctx context.Context) ([]models.CanonicalEvent, error) {
	raw, err := s.store.Get(ctx, kv.KeyCanonicalEvents)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load canonical events: %w", err)
	}

	var set []models.CanonicalEvent
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("failed to decode canonical events: %w", err)
	}

	return set, nil
}

// consume deletes the trigger snapshot and, for original (non-snooze)
// triggers, drops the event from the canonical set.
func (s *Scheduler) consume(ctx context.Context, name string) error {
	if err := s.store.Remove(ctx, kv.PrefixTrigger+name); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	if eventkey.IsSnooze(name) {
		return nil
	}

	set, err := s.CanonicalEvents(ctx)
	if err != nil {
		return err
	}

	kept := set[:0]

	for _, ev := range set {
		if ev.Key != name {
			kept = append(kept, ev)
		}
	}

	if len(kept) == len(set) {
		return nil
	}

	return s.saveCanonical(ctx, kept)
}

func (s *Scheduler) pruneEnded(set []models.CanonicalEvent) []models.CanonicalEvent {
	now := s.now()
	kept := make([]models.CanonicalEvent, 0, len(set))

	for _, ev := range set {
		if ev.EndOrDefault().After(now) {
			kept = append(kept, ev)
		}
	}

	return kept
}

func (s *Scheduler) saveCanonical(ctx context.Context, set []models.CanonicalEvent) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode canonical events: %w", err)
	}

	if err := s.store.Set(ctx, kv.KeyCanonicalEvents, raw); err != nil {
		return fmt.Errorf("failed to persist canonical events: %w", err)
	}

	return nil
}

func (s *Scheduler) saveSnapshot(ctx context.Context, name string, ev models.CanonicalEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.store.Set(ctx, kv.PrefixTrigger+name, raw); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

	return nil
}

func (s *Scheduler) loadSnapshot(ctx context.Context, name string) (models.CanonicalEvent, error) {
	raw, err := s.store.Get(ctx, kv.PrefixTrigger+name)
	if err != nil {
		return models.CanonicalEvent{}, err
	}

	var ev models.CanonicalEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return models.CanonicalEvent{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return ev, nil
}

func (s *Scheduler) isDeclined(ctx context.Context, key string) bool {
	_, err := s.store.Get(ctx, kv.PrefixDeclined+key)

	return err == nil
}

func (s *Scheduler) nextSnoozeSeq(ctx context.Context, key string) (int, error) {
	seq := 1

	raw, err := s.store.Get(ctx, kv.PrefixSnoozeSeq+key)
	if err == nil {
		prev, convErr := strconv.Atoi(string(raw))
		if convErr == nil {
			seq = prev + 1
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		return 0, fmt.Errorf("failed to load snooze sequence: %w", err)
	}

	if err := s.store.Set(ctx, kv.PrefixSnoozeSeq+key, []byte(strconv.Itoa(seq))); err != nil {
		return 0, fmt.Errorf("failed to persist snooze sequence: %w", err)
	}

	return seq, nil
}

// reminderConfig loads persisted reminder settings, falling back to
// defaults. Read on every dispatch so settings changes apply without a
// restart.
func (s *Scheduler) reminderConfig(ctx context.Context) models.ReminderConfig {
	raw, err := s.store.Get(ctx, kv.KeyReminderConfig)
	if err != nil {
		return models.DefaultReminderConfig()
	}

	var cfg models.ReminderConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		s.logger.Warn("corrupt reminder settings, using defaults", zap.Error(err))

		return models.DefaultReminderConfig()
	}

	return cfg
}

// SetReminderConfig persists reminder settings.
func (s *Scheduler) SetReminderConfig(ctx context.Context, cfg models.ReminderConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode reminder settings: %w", err)
	}

	if err := s.store.Set(ctx, kv.KeyReminderConfig, raw); err != nil {
		return fmt.Errorf("failed to persist reminder settings: %w", err)
	}

	return nil
}
