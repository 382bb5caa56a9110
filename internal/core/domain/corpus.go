package domain

import (
	"fmt"
	"time"
)

// Table is one table-like structure found on a page, row-major.
type Table [][]string

// Page is a single unit of a PageCorpus. PageNum is the 1-based position.
type Page struct {
	PageNum int     `json:"page_num"`
	Text    string  `json:"text"`
	Tables  []Table `json:"tables"`
	OCRUsed bool    `json:"ocr_used"`
}

// RawExtraction is the debug view of what the producer handed to the engine.
type RawExtraction struct {
	DocID               string    `json:"doc_id"`
	Pages               []Page    `json:"pages"`
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`
	OCRUsedPages        []int     `json:"ocr_used_pages"`
}

func NewRawExtraction(docID string, pages []Page, at time.Time) RawExtraction {
	ocrPages := make([]int, 0)
	for _, p := range pages {
		if p.OCRUsed {
			ocrPages = append(ocrPages, p.PageNum)
		}
	}
	if pages == nil {
		pages = []Page{}
	}
	return RawExtraction{
		DocID:               docID,
		Pages:               pages,
		ExtractionTimestamp: at.UTC(),
		OCRUsedPages:        ocrPages,
	}
}

// ValidateCorpus checks the structural contract of a page sequence: page_num
// is the 1-based position of the page.
func ValidateCorpus(pages []Page) error {
	for i, p := range pages {
		if p.PageNum != i+1 {
			return WrapError(ErrMalformedCorpus, "validate corpus", fmt.Errorf("page at index %d has page_num %d, want %d", i, p.PageNum, i+1))
		}
	}
	return nil
}
