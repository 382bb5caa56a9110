package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/kirillkom/corporate-action-intel/internal/adapters/cli"
	"github.com/kirillkom/corporate-action-intel/internal/bootstrap"
	"github.com/kirillkom/corporate-action-intel/internal/config"
	"github.com/kirillkom/corporate-action-intel/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "caictl", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	offline, err := bootstrap.NewOffline(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root := cli.NewRootCommand(cli.Deps{
		Extractor:  offline.ScanUC,
		Scanner:    offline.ScanUC,
		Formats:    offline.Formats,
		Engine:     offline.Engine,
		Validator:  offline.Validator,
		Exporter:   offline.Exporter,
		IsTerminal: func() bool { return term.IsTerminal(int(os.Stdout.Fd())) },
		Version:    version,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
