package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/kpi"
	"github.com/kirillkom/corporate-action-intel/internal/core/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// QueryUseCase is the read side: document state, stored results and exports.
type QueryUseCase struct {
	docs     ports.DocumentRepository
	results  ports.ResultRepository
	storage  ports.ObjectStorage
	exporter ports.ResultExporter
}

func NewQueryUseCase(
	docs ports.DocumentRepository,
	results ports.ResultRepository,
	storage ports.ObjectStorage,
	exporter ports.ResultExporter,
) *QueryUseCase {
	return &QueryUseCase{
		docs:     docs,
		results:  results,
		storage:  storage,
		exporter: exporter,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (uc *QueryUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (uc *QueryUseCase) List(ctx context.Context, limit int) ([]domain.Document, error) {
	docs, err := uc.docs.List(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (uc *QueryUseCase) GetResult(ctx context.Context, documentID string) (*domain.KPIResult, error) {
	result, err := uc.results.GetResult(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get kpi result: %w", err)
	}
	return result, nil
}

func (uc *QueryUseCase) GetRawExtraction(ctx context.Context, documentID string) (*domain.RawExtraction, error) {
	raw, err := uc.results.GetRawExtraction(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get raw extraction: %w", err)
	}
	return raw, nil
}

func (uc *QueryUseCase) GetSummary(ctx context.Context, documentID string) (*domain.Summary, error) {
	result, err := uc.GetResult(ctx, documentID)
	if err != nil {
		return nil, err
	}
	raw, err := uc.GetRawExtraction(ctx, documentID)
	if err != nil {
		return nil, err
	}
	summary := kpi.Summarize(*result, raw.Pages)
	return &summary, nil
}

func (uc *QueryUseCase) OpenSource(ctx context.Context, documentID string) (*domain.Document, io.ReadCloser, error) {
	doc, err := uc.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open source file: %w", err)
	}
	return doc, rc, nil
}

func (uc *QueryUseCase) ExportResults(ctx context.Context, limit int, w io.Writer) error {
	results, err := uc.results.ListResults(ctx, clampLimit(limit))
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}
	if err := uc.exporter.Export(results, w); err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	return nil
}
