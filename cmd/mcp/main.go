package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/corporate-action-intel/internal/adapters/mcp"
	"github.com/kirillkom/corporate-action-intel/internal/bootstrap"
	"github.com/kirillkom/corporate-action-intel/internal/config"
	"github.com/kirillkom/corporate-action-intel/internal/observability/logging"
)

var version = "dev"

// Stdout carries the protocol, so logs go to stderr.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	offline, err := bootstrap.NewOffline(cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}

	srv := mcpadapter.NewServer(offline.ScanUC, offline.Engine).MCPServer(version)
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp_server_failed", "error", err.Error())
		os.Exit(1)
	}
}
