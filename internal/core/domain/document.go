package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID                string         `json:"id"`
	Filename          string         `json:"filename"`
	MimeType          string         `json:"mime_type"`
	StoragePath       string         `json:"storage_path"`
	DocumentType      DocumentType   `json:"document_type,omitempty"`
	CompanyName       string         `json:"company_name,omitempty"`
	Ticker            string         `json:"ticker,omitempty"`
	OverallConfidence float64        `json:"overall_confidence,omitempty"`
	WarningCount      int            `json:"warning_count"`
	PageCount         int            `json:"page_count"`
	Status            DocumentStatus `json:"status"`
	Error             string         `json:"error,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ResultSummary is the denormalized slice of a KPIResult kept next to the
// document row for listing.
type ResultSummary struct {
	DocumentType      DocumentType
	CompanyName       string
	Ticker            string
	OverallConfidence float64
	WarningCount      int
	PageCount         int
}

func SummarizeResult(result KPIResult, pageCount int) ResultSummary {
	summary := ResultSummary{
		DocumentType:      result.DocumentType,
		OverallConfidence: result.OverallConfidence,
		WarningCount:      len(result.Warnings),
		PageCount:         pageCount,
	}
	if v, ok := result.Fields[FieldCompanyName].Value.(string); ok {
		summary.CompanyName = v
	}
	if v, ok := result.Fields[FieldTicker].Value.(string); ok {
		summary.Ticker = v
	}
	return summary
}
