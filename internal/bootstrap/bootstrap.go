package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/corporate-action-intel/internal/config"
	"github.com/kirillkom/corporate-action-intel/internal/core/kpi"
	"github.com/kirillkom/corporate-action-intel/internal/core/ports"
	"github.com/kirillkom/corporate-action-intel/internal/core/usecase"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/extractor"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/queue/inline"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/queue/nats"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/resilience"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/schema"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	Engine    *kpi.Engine
	IngestUC  *usecase.IngestDocumentUseCase
	ProcessUC *usecase.ProcessDocumentUseCase
	QueryUC   *usecase.QueryUseCase
	ScanUC    *usecase.ScanUseCase

	closeFn func()
}

type Option func(*options)

type options struct {
	observer ports.ResultObserver
}

// WithResultObserver reports every stored result, typically to metrics.
func WithResultObserver(o ports.ResultObserver) Option {
	return func(opts *options) { opts.observer = o }
}

// Offline is the engine stack without Postgres, storage or the queue. The CLI
// and the MCP server run on it.
type Offline struct {
	Engine    *kpi.Engine
	Formats   *extractor.Router
	ScanUC    *usecase.ScanUseCase
	Validator *schema.Validator
	Exporter  *xlsx.Exporter
}

func NewOffline(cfg config.Config, logger *slog.Logger) (*Offline, error) {
	engine, err := config.NewEngine(cfg.EngineProfilePath)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("init result schema: %w", err)
	}
	formats := newFormats(cfg, nil, logger)
	return &Offline{
		Engine:    engine,
		Formats:   formats,
		ScanUC:    usecase.NewScanUseCase(formats, engine, cfg.ScanWorkers, logger),
		Validator: validator,
		Exporter:  xlsx.NewExporter(),
	}, nil
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}

	offline, err := NewOffline(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg), resilience.WithLogger(logger))
	results := postgres.NewResultRepository(db, executor)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, closeQueue, err := newQueue(cfg, executor, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	formats := newFormats(cfg, storage, logger)

	processOpts := []usecase.ProcessOption{
		usecase.WithResultValidator(offline.Validator),
		usecase.WithProcessLogger(logger),
	}
	if o.observer != nil {
		processOpts = append(processOpts, usecase.WithResultObserver(o.observer))
	}

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		Engine:    offline.Engine,
		IngestUC:  usecase.NewIngestDocumentUseCase(repo, storage, queue, formats),
		ProcessUC: usecase.NewProcessDocumentUseCase(repo, results, formats, offline.Engine, processOpts...),
		QueryUC:   usecase.NewQueryUseCase(repo, results, storage, offline.Exporter),
		ScanUC:    offline.ScanUC,

		closeFn: func() {
			closeQueue()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newFormats(cfg config.Config, storage ports.ObjectStorage, logger *slog.Logger) *extractor.Router {
	return extractor.NewRouter(
		storage,
		pdftext.New(cfg.PDFMaxPages, cfg.SparsePageChars, logger),
		spreadsheet.NewExtractor(),
		plaintext.NewExtractor(),
	)
}

func newQueue(cfg config.Config, executor *resilience.Executor, logger *slog.Logger) (ports.MessageQueue, func(), error) {
	if cfg.InlineProcessing {
		q := inline.New(0, logger)
		return q, q.Close, nil
	}
	q, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return q, q.Close, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.FromSettings(cfg.RetryMaxAttempts, cfg.RetryInitialBackoffMS, cfg.RetryMaxBackoffMS, cfg.BreakerEnabled)
}
