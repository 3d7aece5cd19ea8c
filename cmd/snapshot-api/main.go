package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/odds-capture/store"
	"github.com/xpoes123/SharpLab/internal/shared/cache"
	"github.com/xpoes123/SharpLab/internal/shared/config"
	"github.com/xpoes123/SharpLab/internal/shared/logger"
	"github.com/xpoes123/SharpLab/internal/shared/metrics"
	httpapi "github.com/xpoes123/SharpLab/internal/snapshot-api/http"
	"github.com/xpoes123/SharpLab/internal/snapshot-api/ws"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "snapshot-api"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open snapshot store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	checks := map[string]metrics.HealthFunc{"store": st.Ping}
	var reader httpapi.Reader = st
	var wsHandler http.Handler

	if cfg.RedisAddr != "" {
		redisClient, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("redis connected")

		reader = store.NewCached(st, redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second, log.Named("cache"))
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

		// broadcast de snapshots para clientes WS
		hub := ws.NewHub(func(r *http.Request) bool { return true })
		ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log.Named("ws"))
		wsHandler = hub
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, checks)
	log.Info("metrics/health server starting", zap.String("addr", msrv.Addr))

	api := &httpapi.API{Store: reader, Log: log, WS: wsHandler}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		_ = msrv.Shutdown(sctx)
	}()

	log.Info("snapshot api listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server failed", zap.Error(err))
	}
}
