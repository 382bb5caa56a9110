package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/kpi"
	"github.com/kirillkom/corporate-action-intel/internal/core/ports"
)

// ScanEntry is the outcome for one file of a folder scan. Err is set instead
// of Result when the file could not be processed.
type ScanEntry struct {
	Path    string            `json:"path"`
	Size    int64             `json:"size"`
	DocID   string            `json:"doc_id"`
	Result  *domain.KPIResult `json:"result,omitempty"`
	Summary *domain.Summary   `json:"summary,omitempty"`
	Err     string            `json:"error,omitempty"`
}

// ScanUseCase runs the engine over every supported file of a local folder
// without touching the repositories.
type ScanUseCase struct {
	extractor ports.PageExtractor
	engine    ports.KPIExtractor
	workers   int
	logger    *slog.Logger
}

func NewScanUseCase(extractor ports.PageExtractor, engine ports.KPIExtractor, workers int, logger *slog.Logger) *ScanUseCase {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanUseCase{extractor: extractor, engine: engine, workers: workers, logger: logger}
}

// ScanFolder walks dir recursively. Entries come back in lexical path order.
func (uc *ScanUseCase) ScanFolder(ctx context.Context, dir string) ([]ScanEntry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "scan folder", err)
	}
	if !info.IsDir() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "scan folder", fmt.Errorf("%s is not a directory", dir))
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if uc.extractor.CanHandle(path, mimeFor(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	entries := make([]ScanEntry, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)
	for i, path := range paths {
		g.Go(func() error {
			entries[i] = uc.ScanFile(gCtx, path)
			return gCtx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ScanFile extracts and evaluates a single file; failures are reported in
// the entry.
func (uc *ScanUseCase) ScanFile(ctx context.Context, path string) ScanEntry {
	entry := ScanEntry{Path: path, DocID: newScanID()}
	data, err := os.ReadFile(path)
	if err != nil {
		entry.Err = err.Error()
		return entry
	}
	entry.Size = int64(len(data))

	extraction, err := uc.extract(ctx, entry.DocID, filepath.Base(path), data)
	if err != nil {
		uc.logger.Warn("scan_extract_failed", "path", path, "error", err.Error())
		entry.Err = err.Error()
		return entry
	}
	entry.Result = &extraction.Result
	entry.Summary = &extraction.Summary
	return entry
}

// ExtractDocument runs the engine over in-memory file bytes. Unsupported
// formats fail with domain.ErrUnsupportedFormat.
func (uc *ScanUseCase) ExtractDocument(ctx context.Context, filename string, data []byte) (*domain.Extraction, error) {
	if !uc.extractor.CanHandle(filename, mimeFor(filename)) {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "extract document", fmt.Errorf("filename=%s", filename))
	}
	return uc.extract(ctx, newScanID(), filename, data)
}

func (uc *ScanUseCase) extract(ctx context.Context, docID, filename string, data []byte) (*domain.Extraction, error) {
	pages, err := uc.extractor.ExtractPages(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	result, err := uc.engine.Run(docID, pages)
	if err != nil {
		return nil, err
	}
	return &domain.Extraction{
		PageCount: len(pages),
		Result:    result,
		Summary:   kpi.Summarize(result, pages),
	}, nil
}

func newScanID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func mimeFor(path string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
}
