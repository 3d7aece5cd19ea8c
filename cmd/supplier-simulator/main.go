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
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/shared/config"
	"github.com/xpoes123/SharpLab/internal/shared/logger"
	"github.com/xpoes123/SharpLab/internal/shared/metrics"
	"github.com/xpoes123/SharpLab/internal/supplier-simulator/feed"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "supplier-simulator"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := feed.NewMetrics(reg)

	board := feed.NewBoard(cfg.OddsSource, feed.DefaultCatalog, time.Now().UnixNano(), nil)
	s := feed.NewServer(board, feed.NewHub(log, m), log, m)
	s.ErrorRate = cfg.SupplierErrorRate

	// Gera e envia odds simuladas para todos os clientes conectados a cada 3 segundos
	go s.Run(ctx, 3*time.Second)

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, nil)
	log.Info("supplier simulator (metrics) running",
		zap.String("addr", msrv.Addr),
		zap.String("paths", "/healthz,/metrics"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		_ = msrv.Shutdown(sctx)
	}()

	log.Info("supplier simulator (public) running",
		zap.String("addr", srv.Addr),
		zap.String("paths", "/v1/schedule/today,/v1/odds,/v1/odds/{id},/ws"),
		zap.Float64("error_rate", s.ErrorRate),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("public server error", zap.Error(err))
	}
}
