// Package extractor routes stored documents to the page producer for their
// format and wraps the pages into a RawExtraction.
package extractor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/ports"
)

type Router struct {
	storage    ports.ObjectStorage
	extractors []ports.PageExtractor
	now        func() time.Time
}

func NewRouter(storage ports.ObjectStorage, extractors ...ports.PageExtractor) *Router {
	return &Router{storage: storage, extractors: extractors, now: time.Now}
}

func (r *Router) CanHandle(filename, mimeType string) bool {
	return r.pick(filename, mimeType) != nil
}

func (r *Router) ExtractPages(ctx context.Context, filename string, data []byte) ([]domain.Page, error) {
	ex := r.pick(filename, "")
	if ex == nil {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "extract pages", fmt.Errorf("no extractor for %s", filename))
	}
	return ex.ExtractPages(ctx, filename, data)
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (*domain.RawExtraction, error) {
	ex := r.pick(doc.Filename, doc.MimeType)
	if ex == nil {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "extract pages", fmt.Errorf("no extractor for %s (%s)", doc.Filename, doc.MimeType))
	}

	reader, err := r.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	pages, err := ex.ExtractPages(ctx, doc.Filename, data)
	if err != nil {
		return nil, err
	}
	raw := domain.NewRawExtraction(doc.ID, pages, r.now())
	return &raw, nil
}

func (r *Router) pick(filename, mimeType string) ports.PageExtractor {
	for _, ex := range r.extractors {
		if ex.CanHandle(filename, mimeType) {
			return ex
		}
	}
	return nil
}
