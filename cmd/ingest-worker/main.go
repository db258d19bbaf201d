// Package main 文档摄取工作进程入口（ingest-worker）
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ilka-rag-api/internal/config"
	"ilka-rag-api/internal/wire"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/tracer"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "ingest-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	// 指标端点
	if cfg.Observability.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			path := cfg.Observability.Metrics.Path
			if path == "" {
				path = "/metrics"
			}
			mux.Handle(path, promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Observability.Metrics.Port)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Warn(ctx, "metrics server stopped", "error", err.Error())
			}
		}()
	}

	go func() {
		logger.Info(ctx, "ingest worker starting")
		if err := worker.Consumer.Start(ctx); err != nil {
			logger.Error(ctx, "consumer stopped", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down worker...")
	worker.Consumer.Stop()
	logger.Info(ctx, "worker exited")
}
