package spreadsheet

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Record Date", "17 March 2026"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"Dividend", "$0.45 per share"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := f.SetCellValue("Notes", "A1", "BHP Group Limited"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractPagesOnePagePerSheet(t *testing.T) {
	pages, err := NewExtractor().ExtractPages(context.Background(), "notice.xlsx", workbook(t))
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Text != "Record Date\t17 March 2026\nDividend\t$0.45 per share\n" {
		t.Fatalf("unexpected first page text: %q", pages[0].Text)
	}
	if len(pages[0].Tables) != 1 || len(pages[0].Tables[0]) != 2 || pages[0].Tables[0][1][0] != "Dividend" {
		t.Fatalf("unexpected tables: %+v", pages[0].Tables)
	}
	if pages[1].PageNum != 2 || pages[1].Text != "BHP Group Limited\n" {
		t.Fatalf("unexpected second page: %+v", pages[1])
	}
}

func TestExtractPagesRejectsGarbage(t *testing.T) {
	_, err := NewExtractor().ExtractPages(context.Background(), "notice.xlsx", []byte("not a zip"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
