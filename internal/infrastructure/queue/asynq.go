package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/offcuttrack/offcut-service/internal/pkg/config"
)

// AsynqClient wraps the Asynq client for enqueuing tasks
type AsynqClient struct {
	client *asynq.Client
	logger *slog.Logger
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
}

// NewAsynqClient creates a new Asynq client
func NewAsynqClient(cfg *config.QueueConfig, logger *slog.Logger) *AsynqClient {
	client := asynq.NewClient(redisOpt(cfg))

	logger.Info("asynq client created",
		slog.String("redis_host", cfg.RedisHost),
		slog.Int("redis_port", cfg.RedisPort),
	)

	return &AsynqClient{
		client: client,
		logger: logger,
	}
}

// Close closes the Asynq client
func (a *AsynqClient) Close() error {
	a.logger.Info("closing asynq client")
	return a.client.Close()
}

// EnqueueContext enqueues a task with context
func (a *AsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := a.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		a.logger.Error("failed to enqueue task",
			slog.String("task_type", task.Type()),
			slog.Any("error", err),
		)
		return nil, err
	}

	a.logger.Debug("task enqueued",
		slog.String("task_id", info.ID),
		slog.String("task_type", task.Type()),
		slog.String("queue", info.Queue),
	)

	return info, nil
}

// AsynqServer wraps the Asynq server for processing tasks
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewAsynqServer creates a new Asynq server
func NewAsynqServer(cfg *config.QueueConfig, logger *slog.Logger) *AsynqServer {
	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"high":     3,
				"default":  1,
			},
			StrictPriority: cfg.StrictPriority,

			// Exponential backoff: 2s, 4s, 8s, 16s, ...
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				return time.Duration(1<<uint(n)) * time.Second
			},

			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					slog.String("task_type", task.Type()),
					slog.String("payload", string(task.Payload())),
					slog.Any("error", err),
				)
			}),

			HealthCheckFunc: func(e error) {
				if e != nil {
					logger.Error("health check failed", slog.Any("error", e))
				}
			},
			HealthCheckInterval: 20 * time.Second,

			ShutdownTimeout: 25 * time.Second,
		},
	)

	mux := asynq.NewServeMux()

	logger.Info("asynq server created",
		slog.String("redis_host", cfg.RedisHost),
		slog.Int("redis_port", cfg.RedisPort),
		slog.Int("concurrency", cfg.Concurrency),
	)

	return &AsynqServer{
		server: server,
		mux:    mux,
		logger: logger,
	}
}

// HandleFunc registers a handler function for a task type
func (a *AsynqServer) HandleFunc(pattern string, handler func(context.Context, *asynq.Task) error) {
	a.mux.HandleFunc(pattern, handler)
	a.logger.Debug("handler registered", slog.String("pattern", pattern))
}

// Start starts the Asynq server
func (a *AsynqServer) Start() error {
	a.logger.Info("starting asynq server")
	if err := a.server.Run(a.mux); err != nil {
		return fmt.Errorf("failed to run asynq server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (a *AsynqServer) Shutdown() {
	a.logger.Info("shutting down asynq server")
	a.server.Shutdown()
}
