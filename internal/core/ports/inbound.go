package ports

import (
	"context"
	"io"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit int) ([]domain.Document, error)
}

// ResultReader exposes what the engine produced for a document.
type ResultReader interface {
	GetResult(ctx context.Context, documentID string) (*domain.KPIResult, error)
	GetRawExtraction(ctx context.Context, documentID string) (*domain.RawExtraction, error)
	GetSummary(ctx context.Context, documentID string) (*domain.Summary, error)
	OpenSource(ctx context.Context, documentID string) (*domain.Document, io.ReadCloser, error)
	ExportResults(ctx context.Context, limit int, w io.Writer) error
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// KPIExtractor runs the extraction engine over an in-memory corpus.
type KPIExtractor interface {
	Run(docID string, pages []domain.Page) (domain.KPIResult, error)
	Classify(pages []domain.Page) domain.DocumentType
}

// DocumentExtractor runs page extraction and the engine over a file in one
// call without persisting anything.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, filename string, data []byte) (*domain.Extraction, error)
}
