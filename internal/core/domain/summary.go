package domain

// DividendKind refines a DIVIDEND notice.
type DividendKind string

const (
	DividendOrdinary DividendKind = "ORDINARY"
	DividendInterim  DividendKind = "INTERIM"
	DividendSpecial  DividendKind = "SPECIAL"
	DividendFinal    DividendKind = "FINAL"
)

// Summary is the evidence-free structured view of a result.
type Summary struct {
	DocumentID     string         `json:"document_id"`
	DocumentType   DocumentType   `json:"document_type"`
	Company        CompanyInfo    `json:"company"`
	ActionDetails  ActionDetails  `json:"action_details"`
	ImportantDates ImportantDates `json:"important_dates"`
}

type CompanyInfo struct {
	Name   *string `json:"name"`
	Ticker *string `json:"ticker"`
	ISIN   *string `json:"isin"`
}

type ActionDetails struct {
	DividendKind       *DividendKind `json:"dividend_kind"`
	DividendPerShare   *float64      `json:"dividend_per_share"`
	Currency           *string       `json:"currency"`
	FrankingPercentage *float64      `json:"franking_percentage"`
	Ratio              *Ratio        `json:"ratio"`
}

type ImportantDates struct {
	AnnouncementDate *Date `json:"announcement_date"`
	ExDate           *Date `json:"ex_date"`
	RecordDate       *Date `json:"record_date"`
	PaymentDate      *Date `json:"payment_date"`
}

// Extraction is the outcome of a stateless engine run over uploaded bytes.
type Extraction struct {
	PageCount int       `json:"page_count"`
	Result    KPIResult `json:"result"`
	Summary   Summary   `json:"summary"`
}
