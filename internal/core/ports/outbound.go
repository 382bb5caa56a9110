package ports

import (
	"context"
	"io"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit int) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveSummary(ctx context.Context, id string, summary domain.ResultSummary) error
}

// ResultRepository stores the raw corpus and the KPIResult of a document.
type ResultRepository interface {
	SaveRawExtraction(ctx context.Context, raw domain.RawExtraction) error
	GetRawExtraction(ctx context.Context, documentID string) (*domain.RawExtraction, error)
	SaveResult(ctx context.Context, result domain.KPIResult) error
	GetResult(ctx context.Context, documentID string) (*domain.KPIResult, error)
	ListResults(ctx context.Context, limit int) ([]domain.KPIResult, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// PageExtractor turns one file format into a page corpus.
type PageExtractor interface {
	CanHandle(filename, mimeType string) bool
	ExtractPages(ctx context.Context, filename string, data []byte) ([]domain.Page, error)
}

// CorpusExtractor builds the raw extraction of a stored document.
type CorpusExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (*domain.RawExtraction, error)
}

// ResultValidator checks a result against the published output contract.
type ResultValidator interface {
	ValidateResult(result domain.KPIResult) error
}

// ResultExporter renders results into a downloadable report.
type ResultExporter interface {
	Export(results []domain.KPIResult, w io.Writer) error
}

// ResultObserver receives every result the processor stores.
type ResultObserver interface {
	ObserveResult(result domain.KPIResult)
}
