package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/campus-rag-assistant/internal/adapters/http"
	"github.com/kirillkom/campus-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/campus-rag-assistant/internal/config"
	"github.com/kirillkom/campus-rag-assistant/internal/observability/logging"
	"github.com/kirillkom/campus-rag-assistant/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, logger, httpMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Each api instance keeps its own lexical snapshot, so every indexed
	// event triggers a local reload.
	go func() {
		err := app.Queue.SubscribeDocumentIndexed(ctx, func(handlerCtx context.Context, documentID string) error {
			stats, err := app.QueryUC.ReloadIndex(handlerCtx)
			if err != nil {
				return err
			}
			logger.Info("lexical_index_reloaded", "document_id", documentID, "points", stats.Points)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("indexed_subscription_failed", "error", err)
		}
	}()

	handler, err := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Ingestor:  app.IngestUC,
		Query:     app.QueryUC,
		Documents: app.Documents,
		Health:    app.Health,
		Metrics:   httpMetrics,
		Logger:    logger,
	}).Handler()
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      time.Duration(cfg.APIRequestTimeoutSeconds+10) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "max_connections", cfg.APIMaxConnections)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
