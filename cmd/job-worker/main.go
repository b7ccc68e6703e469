// Package main 异步任务执行器入口（job-worker）
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shape-forge-api/internal/application/generation"
	"shape-forge-api/internal/config"
	"shape-forge-api/internal/infrastructure/messaging"
	"shape-forge-api/internal/infrastructure/persistence/redis"
	"shape-forge-api/internal/wire"
	apperrors "shape-forge-api/pkg/errors"
	"shape-forge-api/pkg/logger"
	"shape-forge-api/pkg/tracer"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	reconcileLockKey     = "lock:worker:reconcile"
	dlqAlertThreshold    = 100
	defaultReconcileCron = "@every 1m"
	defaultStaleAfter    = 10 * time.Minute
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	app, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	streamCfg := cfg.Messaging.RedisStream
	consumerName := hostnameConsumerName()
	newConsumer := func(stream messaging.Stream, group messaging.ConsumerGroup) *messaging.Consumer {
		return messaging.NewConsumer(app.RedisClient.Redis(), messaging.ConsumerConfig{
			Stream:        stream,
			Group:         group,
			ConsumerName:  consumerName,
			BlockTimeout:  streamCfg.BlockTimeout,
			ClaimInterval: streamCfg.ClaimInterval,
			RetryLimit:    streamCfg.RetryLimit,
			Backoff: messaging.BackoffConfig{
				Initial:    streamCfg.RetryBackoff.Initial,
				Max:        streamCfg.RetryBackoff.Max,
				Multiplier: streamCfg.RetryBackoff.Multiplier,
			},
		})
	}

	shapeConsumer := newConsumer(messaging.StreamShapeGen, messaging.ConsumerGroupShapeWorker)
	shapeConsumer.RegisterHandler(messaging.MessageTypeShapeGen, shapeGenHandler(app.Generations))

	auditConsumer := newConsumer(messaging.StreamAuditLog, messaging.ConsumerGroupArchiver)
	auditConsumer.RegisterHandler(messaging.MessageTypeAudit, archiveAuditLog)

	for _, c := range []*messaging.Consumer{shapeConsumer, auditConsumer} {
		if err := c.Start(ctx); err != nil {
			logger.Fatal(ctx, "failed to start consumer", err)
		}
		go c.MonitorDLQ(ctx, dlqAlertThreshold)
	}

	scheduler, err := startReconciler(ctx, cfg.Worker, app.RedisClient, app.Generations)
	if err != nil {
		logger.Fatal(ctx, "failed to schedule reconciler", err)
	}

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "consumer", consumerName, "async_generation", cfg.Generation.Async)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	<-scheduler.Stop().Done()
	shapeConsumer.Stop()
	auditConsumer.Stop()
	cancel()
}

// shapeGenHandler 执行异步生成；记录不存在时无需重试
func shapeGenHandler(generations *generation.Service) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.ShapeGenMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("%w: %v", messaging.ErrPermanent, err)
		}

		ctx = logger.WithContext(ctx, logger.GenerationIDKey, payload.GenerationID)
		if payload.RequestID != "" {
			ctx = logger.WithContext(ctx, logger.RequestIDKey, payload.RequestID)
		}

		err := generations.Process(ctx, payload.GenerationID)
		if errors.Is(err, apperrors.ErrGenerationNotFound) {
			return fmt.Errorf("%w: %v", messaging.ErrPermanent, err)
		}
		return err
	}
}

// archiveAuditLog 将审计事件写入结构化日志，由日志管道归档
func archiveAuditLog(ctx context.Context, msg *messaging.Message) error {
	var entry messaging.AuditLogMessage
	if err := msg.UnmarshalPayload(&entry); err != nil {
		return fmt.Errorf("%w: %v", messaging.ErrPermanent, err)
	}
	logger.Info(ctx, "audit archived",
		"user_id", entry.UserID,
		"method", entry.Method,
		"path", entry.Path,
		"status", entry.Status,
		"duration_ms", entry.DurationMS,
		"request_id", entry.RequestID,
		"trace_id", entry.TraceID,
		"ip", entry.IPAddress,
		"user_agent", entry.UserAgent,
	)
	return nil
}

// startReconciler 定时回收超时未结束的生成记录，多实例间通过 Redis 锁互斥
func startReconciler(ctx context.Context, cfg config.WorkerConfig, redisClient *redis.Client, generations *generation.Service) (*cron.Cron, error) {
	schedule := cfg.ReconcileSchedule
	if schedule == "" {
		schedule = defaultReconcileCron
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		token, err := redisClient.TryLock(ctx, reconcileLockKey, staleAfter)
		if err != nil {
			logger.Warn(ctx, "reconcile lock unavailable", "error", err.Error())
			return
		}
		if token == "" {
			return
		}
		defer func() { _ = redisClient.Unlock(context.WithoutCancel(ctx), reconcileLockKey, token) }()

		if _, err := generations.Reconcile(ctx, staleAfter); err != nil {
			logger.Error(ctx, "reconcile stale generations failed", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
