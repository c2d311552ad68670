package redis

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/dtimer"
	"github.com/meetsentinel/meetsentinel/redis/config"
)

// Server consumes fired triggers and hands them to the registered callback.
type Server struct {
	server *asynq.Server
	logger *zap.Logger
}

// NewServer creates the trigger consumer.
func NewServer(cfg *config.RedisConfig, logger *zap.Logger) *Server {
	redisOpt := asynq.RedisClientOpt{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Workers,
			Queues:      map[string]int{QueueReminders: 1},
			Logger:      &zapAdapter{logger: logger.Sugar()},
		},
	)

	return &Server{server: srv, logger: logger}
}

// Start begins consuming fired triggers. The fire callback receives the
// trigger name; its errors are logged and swallowed so a bad trigger never
// poisons the queue.
func (s *Server) Start(fire dtimer.FireFunc) error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TypeReminderFire, func(ctx context.Context, task *asynq.Task) error {
		name := string(task.Payload())

		if err := fire(ctx, name); err != nil {
			s.logger.Warn("trigger handler failed",
				zap.String("trigger", name),
				zap.Error(err))
		}

		return nil
	})

	return s.server.Start(mux)
}

// Shutdown gracefully stops the consumer.
func (s *Server) Shutdown() {
	s.server.Shutdown()
}

// zapAdapter satisfies asynq.Logger with the shared zap logger.
type zapAdapter struct {
	logger *zap.SugaredLogger
}

func (a *zapAdapter) Debug(args ...interface{}) { a.logger.Debug(args...) }
func (a *zapAdapter) Info(args ...interface{})  { a.logger.Info(args...) }
func (a *zapAdapter) Warn(args ...interface{})  { a.logger.Warn(args...) }
func (a *zapAdapter) Error(args ...interface{}) { a.logger.Error(args...) }
func (a *zapAdapter) Fatal(args ...interface{}) { a.logger.Fatal(args...) }
