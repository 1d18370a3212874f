package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/vitoflow/metering-api/internal/config"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"github.com/vitoflow/metering-api/internal/domain/usage"
	"github.com/vitoflow/metering-api/internal/tasks"
	"go.uber.org/zap"
)

// RunWorkers starts the asynq server and scheduler and blocks until ctx
// is cancelled. Both hourly sweeps are registered here: rollup
// verification and API key expiry.
func RunWorkers(ctx context.Context, cfg *config.Config, keyRepo apikey.Repository, usageRepo usage.Repository, logger *zap.Logger) error {
	redisConnOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisConnOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Named("AsynqErrorHandler").Error("Task processing failed",
					zap.String("task_type", task.Type()),
					zap.Error(err),
				)
			}),
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqServer")),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeUsageRollupVerify, tasks.NewUsageRollupVerifyHandler(usageRepo, logger).ProcessTask)
	mux.HandleFunc(tasks.TypeAPIKeyExpireSweep, tasks.NewAPIKeyExpireSweepHandler(keyRepo, logger).ProcessTask)

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("asynq server start error: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisConnOpts,
		&asynq.SchedulerOpts{
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqScheduler")),
		},
	)

	rollupTask, err := tasks.NewUsageRollupVerifyTask()
	if err != nil {
		srv.Shutdown()
		return fmt.Errorf("scheduler task creation error: %w", err)
	}
	if _, err := scheduler.Register("@every 1h", rollupTask); err != nil {
		srv.Shutdown()
		return fmt.Errorf("scheduler registration error: %w", err)
	}

	sweepTask, err := tasks.NewAPIKeyExpireSweepTask()
	if err != nil {
		srv.Shutdown()
		return fmt.Errorf("scheduler task creation error: %w", err)
	}
	if _, err := scheduler.Register("@every 1h", sweepTask); err != nil {
		srv.Shutdown()
		return fmt.Errorf("scheduler registration error: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		return fmt.Errorf("asynq scheduler start error: %w", err)
	}

	logger.Info("Asynq server and scheduler started")

	<-ctx.Done()

	logger.Info("Shutting down Asynq scheduler and server...")
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info("Asynq workers stopped.")

	return nil
}

type asynqLoggerAdapter struct {
	logger *zap.Logger
}

func NewAsynqLoggerAdapter(logger *zap.Logger) *asynqLoggerAdapter {
	return &asynqLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *asynqLoggerAdapter) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
