package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/campus-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/campus-rag-assistant/internal/config"
	"github.com/kirillkom/campus-rag-assistant/internal/observability/logging"
	"github.com/kirillkom/campus-rag-assistant/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	// Submit blocks while every slot is busy, which keeps NATS delivery
	// backpressured to the configured concurrency.
	pool, err := ants.NewPool(max(cfg.WorkerConcurrency, 1))
	if err != nil {
		logger.Error("worker_pool_init_failed", "error", err)
		os.Exit(1)
	}

	timeout := time.Duration(max(cfg.WorkerTimeoutMinutes, 1)) * time.Minute
	process := func(parent context.Context, documentID string) {
		processCtx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		if doc, err := app.Documents.GetByID(processCtx, documentID); err == nil {
			workerMetrics.ObserveQueueLag(time.Since(doc.CreatedAt))
		}

		started := time.Now()
		workerMetrics.StartDocument()
		err := app.ProcessUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishDocument(time.Since(started), err)
		if err != nil {
			logger.Error("document_process_failed", "document_id", documentID, "error", err)
			return
		}
		logger.Info("document_processed", "document_id", documentID, "duration_ms", time.Since(started).Milliseconds())
	}

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "concurrency", cfg.WorkerConcurrency)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(_ context.Context, documentID string) error {
		return pool.Submit(func() { process(ctx, documentID) })
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}

	pool.Release()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
