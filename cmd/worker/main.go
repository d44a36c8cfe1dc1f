package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/p5portal/backend-portal/internal/common"
	"github.com/p5portal/backend-portal/internal/config"
	"github.com/p5portal/backend-portal/internal/notify"
	"github.com/p5portal/backend-portal/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	worker := notify.Worker{
		Emails: notify.EmailNotifier{
			Mail:         common.NopEmailSender{},
			Enabled:      cfg.NotifyEmailEnabled,
			From:         cfg.NotifyEmailFrom,
			BackOffice:   cfg.NotifyBackOfficeEmail,
			TopicToggles: cfg.NotifyEmailTopics,
		},
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOpts.Addr,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskEmailNotification, worker.HandleEmailTask)

	logger.Info().Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}

	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}
