package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/corporate-action-intel/internal/adapters/http"
	"github.com/kirillkom/corporate-action-intel/internal/bootstrap"
	"github.com/kirillkom/corporate-action-intel/internal/config"
	"github.com/kirillkom/corporate-action-intel/internal/observability/logging"
	"github.com/kirillkom/corporate-action-intel/internal/observability/metrics"
)

const service = "api"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.WithResultObserver(httpMetrics))
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	router, err := httpadapter.NewRouter(
		cfg,
		app.IngestUC,
		app.QueryUC,
		app.QueryUC,
		app.ScanUC,
		httpadapter.WithMetrics(httpMetrics),
	).Handler()
	if err != nil {
		logger.Error("router_init_failed", "error", err.Error())
		os.Exit(1)
	}

	if cfg.InlineProcessing {
		go runInlineWorker(ctx, app, logger)
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api_listen_failed", "port", cfg.APIPort, "error", err.Error())
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "inline_processing", cfg.InlineProcessing)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err.Error())
	}
}

// runInlineWorker consumes the in-process queue when no separate worker runs.
func runInlineWorker(ctx context.Context, app *bootstrap.App, logger *slog.Logger) {
	timeout := time.Duration(app.Config.ProcessTimeoutSeconds) * time.Second
	err := app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, timeout)
		defer cancel()
		return app.ProcessUC.ProcessByID(processCtx, documentID)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("inline_worker_stopped", "error", err.Error())
	}
}
