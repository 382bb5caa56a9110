package plaintext

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

// Extractor reads UTF-8 text notices. A form feed starts a new page.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) CanHandle(filename, mimeType string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text":
		return true
	}
	return strings.HasPrefix(mimeType, "text/plain")
}

func (e *Extractor) ExtractPages(_ context.Context, filename string, data []byte) ([]domain.Page, error) {
	if !utf8.Valid(data) {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "read text", fmt.Errorf("%s is not valid UTF-8", filename))
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	chunks := strings.Split(text, "\f")
	pages := make([]domain.Page, 0, len(chunks))
	for i, chunk := range chunks {
		pages = append(pages, domain.Page{
			PageNum: i + 1,
			Text:    chunk,
			Tables:  []domain.Table{},
		})
	}
	return pages, nil
}
