// Package redis implements the durable-timer facility on top of asynq.
// Every reminder trigger is an asynq task whose task ID is the trigger name,
// so uniqueness is enforced by the broker itself and timers survive process
// restarts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meetsentinel/meetsentinel/dtimer"
	"github.com/meetsentinel/meetsentinel/redis/config"
)

// TypeReminderFire is the asynq task type carried by every reminder trigger.
const TypeReminderFire = "reminder:fire"

// QueueReminders is the queue all reminder triggers go to.
const QueueReminders = "reminders"

var _ dtimer.Facility = (*Timers)(nil)

// Timers wraps an asynq client and inspector as a dtimer.Facility.
type Timers struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	cfg       *config.RedisConfig
}

// NewTimers creates the facility and verifies the Redis connection.
func NewTimers(cfg *config.RedisConfig) (*Timers, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Timers{
		client:    client,
		inspector: asynq.NewInspector(redisOpt),
		cfg:       cfg,
	}, nil
}

// Create schedules a trigger firing at the given instant. A trigger with the
// same name already being live is treated as success, not error: duplicate
// ingestion and restart re-walks hit this path constantly.
//
// MaxRetry is zero on purpose. A reminder whose handler fails is not retried;
// silently failing to notify beats double-notifying at an unpredictable
// later time.
func (t *Timers) Create(ctx context.Context, name string, at time.Time) error {
	task := asynq.NewTask(TypeReminderFire, []byte(name))

	_, err := t.client.EnqueueContext(ctx, task,
		asynq.TaskID(name),
		asynq.ProcessAt(at),
		asynq.Queue(QueueReminders),
		asynq.MaxRetry(0),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to enqueue trigger %s: %w", name, err)
	}

	return nil
}

// Exists reports whether a live trigger with this name is scheduled.
func (t *Timers) Exists(ctx context.Context, name string) (bool, error) {
	info, err := t.inspector.GetTaskInfo(QueueReminders, name)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to inspect trigger %s: %w", name, err)
	}

	switch info.State {
	case asynq.TaskStateScheduled, asynq.TaskStatePending, asynq.TaskStateActive:
		return true, nil
	default:
		return false, nil
	}
}

// Clear cancels the named trigger. A missing trigger is a no-op.
func (t *Timers) Clear(ctx context.Context, name string) error {
	err := t.inspector.DeleteTask(QueueReminders, name)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to clear trigger %s: %w", name, err)
	}

	return nil
}

// Close closes the underlying asynq client and inspector.
func (t *Timers) Close() error {
	if err := t.client.Close(); err != nil {
		return fmt.Errorf("failed to close asynq client: %w", err)
	}

	return t.inspector.Close()
}
