package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kmrl/documind/internal/adapters/mcp"
	"github.com/kmrl/documind/internal/bootstrap"
	"github.com/kmrl/documind/internal/config"
	"github.com/kmrl/documind/internal/observability/logging"
)

const version = "1.0.0"

// stdout carries the MCP protocol, so logs go to stderr.
func main() {
	cfg := config.Load()
	logger := logging.New(os.Stderr, "json", "documind-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(mcpadapter.Dependencies{
		Processor:      app.ProcessUC,
		Classifier:     app.ClassificationUC,
		Languages:      app.LanguageUC,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})
	if err := server.ServeStdio(mcpadapter.NewServer(version, tools)); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
