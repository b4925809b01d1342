// Command ragctl runs the retrieval and answering core in-process against
// Qdrant and Ollama, without the api, Postgres or NATS.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/campus-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/campus-rag-assistant/internal/config"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
	"github.com/kirillkom/campus-rag-assistant/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(loadQueryService).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func loadQueryService(logLevel string) (ports.DocumentQueryService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "ragctl", cfg.LogLevel)
	return bootstrap.NewQuery(cfg, logger, nil).QueryUC, nil
}
