package main

import (
	"log"
	"os"

	mcpadapter "github.com/kirillkom/campus-rag-assistant/internal/adapters/mcp"
	"github.com/kirillkom/campus-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/campus-rag-assistant/internal/config"
	"github.com/kirillkom/campus-rag-assistant/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// stdout carries the protocol; logs go to stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	core := bootstrap.NewQuery(cfg, logger, nil)
	if err := mcpadapter.NewServer(core.QueryUC, logger).ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
