// Package pdftext builds a page corpus from PDF notices: pdfcpu checks the
// file structure, ledongthuc/pdf reads the text layer page by page.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

const (
	defaultMaxPages    = 200
	defaultSparseChars = 50
	defaultFontSize    = 12.0
	// A horizontal gap wider than this many font sizes separates table cells.
	cellGapFactor = 1.5
)

type Extractor struct {
	maxPages    int
	sparseChars int
	logger      *slog.Logger
}

func New(maxPages, sparseChars int, logger *slog.Logger) *Extractor {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if sparseChars <= 0 {
		sparseChars = defaultSparseChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{maxPages: maxPages, sparseChars: sparseChars, logger: logger}
}

func (e *Extractor) CanHandle(filename, mimeType string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf") || mimeType == "application/pdf"
}

func (e *Extractor) ExtractPages(ctx context.Context, filename string, data []byte) ([]domain.Page, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "read pdf", fmt.Errorf("%s has no PDF header", filename))
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate pdf", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open pdf", err)
	}

	total := reader.NumPage()
	if total > e.maxPages {
		e.logger.Warn("pdf_truncated", "filename", filename, "pages", total, "max_pages", e.maxPages)
		total = e.maxPages
	}

	pages := make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := reader.Page(i)
		page := domain.Page{PageNum: i, Tables: []domain.Table{}}
		if !p.V.IsNull() {
			text, tables, err := readPage(p)
			if err != nil {
				e.logger.Warn("pdf_page_failed", "filename", filename, "page", i, "error", err.Error())
			} else {
				page.Text = text
				page.Tables = tables
			}
		}
		if len(strings.TrimSpace(page.Text)) < e.sparseChars {
			e.logger.Info("pdf_sparse_page", "filename", filename, "page", i, "chars", len(strings.TrimSpace(page.Text)))
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// readPage returns row-ordered text and the tables detected from column gaps.
// The pdf reader panics on some malformed content streams.
func readPage(p pdf.Page) (text string, tables []domain.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read page: %v", r)
		}
	}()

	rows, rowErr := p.GetTextByRow()
	if rowErr != nil {
		plain, plainErr := p.GetPlainText(nil)
		if plainErr != nil {
			return "", nil, plainErr
		}
		return plain, []domain.Table{}, nil
	}

	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	// PDF y grows upwards; read top to bottom.
	sort.SliceStable(sorted, func(i, j int) bool {
		return averageY(sorted[i].Content) > averageY(sorted[j].Content)
	})

	var buf strings.Builder
	tables = []domain.Table{}
	var current domain.Table
	for _, row := range sorted {
		cells := rowCells(row.Content)
		line := strings.Join(cells, " ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')

		if len(cells) > 1 {
			current = append(current, cells)
			continue
		}
		if len(current) > 1 {
			tables = append(tables, current)
		}
		current = nil
	}
	if len(current) > 1 {
		tables = append(tables, current)
	}
	return buf.String(), tables, nil
}

func averageY(texts []pdf.Text) float64 {
	if len(texts) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range texts {
		total += t.Y
	}
	return total / float64(len(texts))
}

// rowCells joins glyph runs left to right. Small gaps become spaces, wide gaps
// start a new cell.
func rowCells(texts []pdf.Text) []string {
	elems := make([]pdf.Text, len(texts))
	copy(elems, texts)
	sort.SliceStable(elems, func(i, j int) bool { return elems[i].X < elems[j].X })

	var cells []string
	var cell strings.Builder
	for i, el := range elems {
		cell.WriteString(el.S)
		if i == len(elems)-1 {
			break
		}
		fontSize := el.FontSize
		if fontSize <= 0 {
			fontSize = defaultFontSize
		}
		gap := elems[i+1].X - (el.X + el.W)
		switch {
		case gap > fontSize*cellGapFactor:
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		case gap > fontSize*0.2:
			cell.WriteByte(' ')
		}
	}
	if s := strings.TrimSpace(cell.String()); s != "" || len(cells) == 0 {
		cells = append(cells, s)
	}
	return cells
}
