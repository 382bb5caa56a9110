package kpi

import "github.com/kirillkom/corporate-action-intel/internal/core/domain"

// OverallConfidence is the mean confidence of the present fields, summed in
// fixed field order, or 0 when nothing was extracted.
func OverallConfidence(fields domain.Fields) float64 {
	sum := 0.0
	n := 0
	for _, name := range domain.FieldNames {
		field, ok := fields[name]
		if !ok || !field.Present() {
			continue
		}
		sum += field.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Assemble builds the final result. Every field of the fixed set is present;
// warnings are copied so the result does not alias caller slices.
func Assemble(docID string, docType domain.DocumentType, fields domain.Fields, warnings []string) domain.KPIResult {
	complete := make(domain.Fields, len(domain.FieldNames))
	for _, name := range domain.FieldNames {
		field := fields[name]
		if !field.Present() {
			field = domain.ExtractedField{}
		}
		complete[name] = field
	}
	out := make([]string, len(warnings))
	copy(out, warnings)
	return domain.KPIResult{
		DocID:             docID,
		DocumentType:      docType,
		Fields:            complete,
		OverallConfidence: OverallConfidence(complete),
		Warnings:          out,
	}
}
