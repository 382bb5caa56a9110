// Package xlsx renders stored KPI results as a spreadsheet report, one row per
// document with a value and a confidence column per field.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

const sheet = "Results"

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func Headers() []string {
	headers := []string{"doc_id", "document_type"}
	for _, name := range domain.FieldNames {
		headers = append(headers, string(name), string(name)+"_confidence")
	}
	return append(headers, "overall_confidence", "warnings")
}

func (e *Exporter) Export(results []domain.KPIResult, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range Headers() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for r, result := range results {
		row := r + 2
		col := 1
		write := func(v any) error {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			col++
			return f.SetCellValue(sheet, cell, v)
		}

		values := []any{result.DocID, string(result.DocumentType)}
		for _, name := range domain.FieldNames {
			field := result.Fields[name]
			values = append(values, cellValue(field.Value), field.Confidence)
		}
		values = append(values, result.OverallConfidence, strings.Join(result.Warnings, "; "))
		for _, v := range values {
			if err := write(v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "B", "B", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func cellValue(v any) any {
	switch value := v.(type) {
	case nil:
		return ""
	case domain.Date:
		return value.String()
	case domain.Ratio:
		return value.String()
	default:
		return value
	}
}
