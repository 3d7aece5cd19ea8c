package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/odds-capture/activities"
	"github.com/xpoes123/SharpLab/internal/odds-capture/provider"
	"github.com/xpoes123/SharpLab/internal/odds-capture/publisher"
	"github.com/xpoes123/SharpLab/internal/odds-capture/store"
	"github.com/xpoes123/SharpLab/internal/odds-capture/workflows"
	"github.com/xpoes123/SharpLab/internal/shared/cache"
	"github.com/xpoes123/SharpLab/internal/shared/config"
	"github.com/xpoes123/SharpLab/internal/shared/kafka"
	"github.com/xpoes123/SharpLab/internal/shared/logger"
	"github.com/xpoes123/SharpLab/internal/shared/metrics"
	"github.com/xpoes123/SharpLab/internal/shared/temporal"
)

func main() {
	// carrega config
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "capture-worker"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// store de snapshots
	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open snapshot store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()
	log.Info("snapshot store ready", zap.String("backend", cfg.StoreBackend))

	checks := map[string]metrics.HealthFunc{"store": st.Ping}
	var sinks []activities.SnapshotSink
	var upserter activities.SnapshotStore = st

	// cache Redis + broadcast (opcional)
	if cfg.RedisAddr != "" {
		redisClient, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("redis connected")

		upserter = store.NewCached(st, redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second, log.Named("cache"))
		sinks = append(sinks, publisher.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel))
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	// eventos Kafka (opcional)
	if cfg.KafkaBrokers != "" {
		if cfg.Env == "local" || cfg.Env == "dev" {
			tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := publisher.EnsureTopic(tctx, strings.Split(cfg.KafkaBrokers, ","), cfg.TopicSnapshots, log); err != nil {
				log.Warn("failed to ensure kafka topic", zap.String("topic", cfg.TopicSnapshots), zap.Error(err))
			}
			cancel()
		}
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSnapshots)
		pub := publisher.NewKafkaPublisher(writer, cfg.TopicSnapshots, log.Named("kafka"))
		defer pub.Close()
		sinks = append(sinks, pub)
		checks["kafka"] = func(ctx context.Context) error { return kafka.Ping(ctx, cfg.KafkaBrokers) }
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicSnapshots))
	}

	// métricas
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	capture := metrics.NewCapture(reg)

	acts := &activities.Activities{
		Schedule:     provider.ScheduleFromConfig(cfg),
		Odds:         provider.OddsFromConfig(ctx, cfg, log),
		Store:        upserter,
		Sinks:        sinks,
		OnDiscovered: capture.OnDiscovered,
		OnUpserted:   capture.OnUpserted,
		OnPublished:  capture.OnPublished,
		OnError:      capture.OnError,
	}

	// engine durável
	tc, err := temporal.Dial(cfg, log)
	if err != nil {
		log.Fatal("failed to connect temporal", zap.Error(err))
	}
	defer tc.Close()
	checks["temporal"] = func(ctx context.Context) error {
		_, err := tc.CheckHealth(ctx, nil)
		return err
	}

	w := worker.New(tc, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.OddsPollingWorkflow)
	w.RegisterWorkflow(workflows.CloseCaptureWorkflow)
	w.RegisterActivity(acts)

	srv := metrics.StartMetricsServer(cfg.MetricsPort, reg, checks)
	log.Info("metrics/health server starting", zap.String("addr", srv.Addr))

	if err := w.Start(); err != nil {
		log.Fatal("worker start failed", zap.Error(err))
	}
	log.Info("worker started", zap.String("task_queue", cfg.TaskQueue))

	<-ctx.Done()
	log.Info("shutting down")

	w.Stop()
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
}
