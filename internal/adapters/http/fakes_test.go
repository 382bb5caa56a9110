package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/corporate-action-intel/internal/config"
	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

type ingestFake struct {
	err      error
	gotName  string
	gotMime  string
	gotBytes string
}

func (f *ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.gotName, f.gotMime, f.gotBytes = filename, mimeType, string(raw)
	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "doc-1_" + filename,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type docsFake struct {
	err      error
	gotLimit int
}

func (f *docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Filename: "a.pdf", MimeType: "application/pdf", StoragePath: id + "_a.pdf", Status: domain.StatusReady}, nil
}

func (f *docsFake) List(_ context.Context, limit int) ([]domain.Document, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Document{{ID: "doc-2"}, {ID: "doc-1"}}, nil
}

type resultsFake struct {
	err    error
	result domain.KPIResult
}

func (f *resultsFake) GetResult(_ context.Context, id string) (*domain.KPIResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.result
	out.DocID = id
	return &out, nil
}

func (f *resultsFake) GetRawExtraction(_ context.Context, id string) (*domain.RawExtraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw := domain.NewRawExtraction(id, []domain.Page{{PageNum: 1, Text: "Dividend"}}, time.Now())
	return &raw, nil
}

func (f *resultsFake) GetSummary(_ context.Context, id string) (*domain.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Summary{DocumentID: id, DocumentType: domain.DocumentTypeDividend}, nil
}

func (f *resultsFake) OpenSource(_ context.Context, id string) (*domain.Document, io.ReadCloser, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	doc := &domain.Document{ID: id, Filename: "notice.txt", MimeType: "text/plain"}
	return doc, io.NopCloser(strings.NewReader("Record Date: 1 March 2024")), nil
}

func (f *resultsFake) ExportResults(_ context.Context, _ int, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK-fake-xlsx"))
	return err
}

type extractorFake struct {
	err error
}

func (f *extractorFake) ExtractDocument(_ context.Context, filename string, data []byte) (*domain.Extraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !strings.HasSuffix(filename, ".txt") {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "extract", errors.New(filename))
	}
	result := domain.KPIResult{
		DocID:        "scan-1",
		DocumentType: domain.DocumentTypeDividend,
		Fields: domain.Fields{
			domain.FieldTicker: {Value: "BHP", Confidence: 0.9, Evidence: []domain.Evidence{{Page: 1, Snippet: string(data)}}},
		},
		OverallConfidence: 0.9,
	}
	return &domain.Extraction{
		PageCount: 1,
		Result:    result,
		Summary:   domain.Summary{DocumentID: "scan-1", DocumentType: domain.DocumentTypeDividend},
	}, nil
}

func testConfig() config.Config {
	return config.Config{
		MaxUploadBytes:     1 << 20,
		APIOpenAPIValidate: true,
	}
}

func newTestHandler(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	return newHandlerWith(t, cfg, &ingestFake{}, &docsFake{}, &resultsFake{}, &extractorFake{})
}

func newHandlerWith(t *testing.T, cfg config.Config, ingest *ingestFake, docs *docsFake, results *resultsFake, extractor *extractorFake) http.Handler {
	t.Helper()
	handler, err := NewRouter(cfg, ingest, docs, results, extractor).Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	return handler
}
