package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	results   ports.ResultRepository
	extractor ports.CorpusExtractor
	engine    ports.KPIExtractor
	validator ports.ResultValidator
	observer  ports.ResultObserver
	logger    *slog.Logger
}

type ProcessOption func(*ProcessDocumentUseCase)

// WithResultValidator checks every result before it is stored.
func WithResultValidator(v ports.ResultValidator) ProcessOption {
	return func(uc *ProcessDocumentUseCase) { uc.validator = v }
}

func WithResultObserver(o ports.ResultObserver) ProcessOption {
	return func(uc *ProcessDocumentUseCase) { uc.observer = o }
}

func WithProcessLogger(logger *slog.Logger) ProcessOption {
	return func(uc *ProcessDocumentUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	results ports.ResultRepository,
	extractor ports.CorpusExtractor,
	engine ports.KPIExtractor,
	opts ...ProcessOption,
) *ProcessDocumentUseCase {
	uc := &ProcessDocumentUseCase{
		repo:      repo,
		results:   results,
		extractor: extractor,
		engine:    engine,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	started := time.Now()
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, raw, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		uc.logger.Warn("process_failed", "document_id", documentID, "error", err.Error())
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistSummary(ctx, documentID, domain.SummarizeResult(result, len(raw.Pages))); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	if uc.observer != nil {
		uc.observer.ObserveResult(result)
	}
	uc.logger.Info("process_ok",
		"document_id", documentID,
		"document_type", string(result.DocumentType),
		"overall_confidence", result.OverallConfidence,
		"warnings", len(result.Warnings),
		"pages", len(raw.Pages),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (domain.KPIResult, *domain.RawExtraction, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return domain.KPIResult{}, nil, err
	}

	raw, err := uc.extractCorpus(ctx, doc)
	if err != nil {
		return domain.KPIResult{}, nil, err
	}

	if err := uc.results.SaveRawExtraction(ctx, *raw); err != nil {
		return domain.KPIResult{}, nil, fmt.Errorf("save raw extraction: %w", err)
	}

	result, err := uc.engine.Run(doc.ID, raw.Pages)
	if err != nil {
		return domain.KPIResult{}, nil, fmt.Errorf("run kpi engine: %w", err)
	}

	if uc.validator != nil {
		if err := uc.validator.ValidateResult(result); err != nil {
			return domain.KPIResult{}, nil, fmt.Errorf("check result contract: %w", err)
		}
	}

	if err := uc.results.SaveResult(ctx, result); err != nil {
		return domain.KPIResult{}, nil, fmt.Errorf("save kpi result: %w", err)
	}

	return result, raw, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractCorpus(ctx context.Context, doc *domain.Document) (*domain.RawExtraction, error) {
	raw, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	return raw, nil
}

func (uc *ProcessDocumentUseCase) persistSummary(ctx context.Context, documentID string, summary domain.ResultSummary) error {
	if err := uc.repo.SaveSummary(ctx, documentID, summary); err != nil {
		return fmt.Errorf("save result summary: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
