// Package spreadsheet reads notices distributed as .xlsx workbooks. Each sheet
// becomes one page whose text is the tab-joined rows and whose single table is
// the sheet grid.
package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) CanHandle(filename, mimeType string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".xlsx") || mimeType == xlsxMime
}

func (e *Extractor) ExtractPages(ctx context.Context, filename string, data []byte) ([]domain.Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", fmt.Errorf("%s: %w", filename, err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	pages := make([]domain.Page, 0, len(sheets))
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		var text strings.Builder
		table := make(domain.Table, 0, len(rows))
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line == "" {
				continue
			}
			text.WriteString(line)
			text.WriteByte('\n')
			table = append(table, row)
		}

		tables := []domain.Table{}
		if len(table) > 0 {
			tables = append(tables, table)
		}
		pages = append(pages, domain.Page{
			PageNum: i + 1,
			Text:    text.String(),
			Tables:  tables,
		})
	}
	return pages, nil
}
