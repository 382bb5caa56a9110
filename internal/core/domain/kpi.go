package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DocumentType is the corporate-action category of a notice.
type DocumentType string

const (
	DocumentTypeDividend      DocumentType = "DIVIDEND"
	DocumentTypeSplit         DocumentType = "SPLIT"
	DocumentTypeBonus         DocumentType = "BONUS"
	DocumentTypeRights        DocumentType = "RIGHTS"
	DocumentTypeCapitalReturn DocumentType = "CAPITAL_RETURN"
	DocumentTypeUnknown       DocumentType = "UNKNOWN"
)

// DocumentTypePriority is the tie-break order of the classifier, strongest first.
var DocumentTypePriority = []DocumentType{
	DocumentTypeDividend,
	DocumentTypeSplit,
	DocumentTypeBonus,
	DocumentTypeRights,
	DocumentTypeCapitalReturn,
}

func ParseDocumentType(raw string) (DocumentType, error) {
	t := DocumentType(raw)
	if t == DocumentTypeUnknown {
		return t, nil
	}
	for _, known := range DocumentTypePriority {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, raw)
}

// FieldName identifies one KPI of the fixed field set.
type FieldName string

const (
	FieldCompanyName        FieldName = "company_name"
	FieldTicker             FieldName = "ticker"
	FieldISIN               FieldName = "isin"
	FieldExDate             FieldName = "ex_date"
	FieldRecordDate         FieldName = "record_date"
	FieldPaymentDate        FieldName = "payment_date"
	FieldDividendPerShare   FieldName = "dividend_per_share"
	FieldCurrency           FieldName = "currency"
	FieldFrankingPercentage FieldName = "franking_percentage"
	FieldRatio              FieldName = "ratio"
	FieldAnnouncementDate   FieldName = "announcement_date"
)

// FieldNames is the fixed field set in output order.
var FieldNames = []FieldName{
	FieldCompanyName,
	FieldTicker,
	FieldISIN,
	FieldExDate,
	FieldRecordDate,
	FieldPaymentDate,
	FieldDividendPerShare,
	FieldCurrency,
	FieldFrankingPercentage,
	FieldRatio,
	FieldAnnouncementDate,
}

func ParseFieldName(raw string) (FieldName, error) {
	for _, name := range FieldNames {
		if string(name) == raw {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: unknown field %q", ErrInvalidInput, raw)
}

// FieldKind is the value type a field normalizes to.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindNumber
	KindRatio
)

func (n FieldName) Kind() FieldKind {
	switch n {
	case FieldExDate, FieldRecordDate, FieldPaymentDate, FieldAnnouncementDate:
		return KindDate
	case FieldDividendPerShare, FieldFrankingPercentage:
		return KindNumber
	case FieldRatio:
		return KindRatio
	default:
		return KindText
	}
}

const isoDateLayout = "2006-01-02"

// Date is a calendar date without time of day or zone.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseISODate(raw string) (Date, error) {
	t, err := time.Parse(isoDateLayout, raw)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time { return d.t }

func (d Date) String() string { return d.t.Format(isoDateLayout) }

// Compare returns -1, 0 or +1 like time.Time.Compare.
func (d Date) Compare(other Date) int { return d.t.Compare(other.t) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseISODate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Ratio is an "X for Y" share ratio: X new for every Y held.
type Ratio struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

func (r Ratio) String() string {
	return strconv.Itoa(r.Numerator) + " for " + strconv.Itoa(r.Denominator)
}

// Evidence locates the text a field value was taken from.
type Evidence struct {
	Page    int    `json:"page"`
	Snippet string `json:"snippet"`
}

// ExtractedField is the outcome for one field. Value is nil when the field was
// not found or could not be normalized; otherwise it holds a string, float64,
// Date or Ratio depending on the field kind.
type ExtractedField struct {
	Value      any        `json:"value"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence"`
}

func (f ExtractedField) Present() bool { return f.Value != nil }

// Fields maps every field of the fixed set to its outcome.
type Fields map[FieldName]ExtractedField

// KPIResult is the assembled, immutable outcome of one engine run.
type KPIResult struct {
	DocID             string
	DocumentType      DocumentType
	Fields            Fields
	OverallConfidence float64
	Warnings          []string
}

// MarshalJSON writes the flat result object with a fixed key order:
// doc_id, document_type, one key per field, overall_confidence, warnings.
func (r KPIResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		buf.Write(v)
		return nil
	}

	if err := writeKey("doc_id", r.DocID); err != nil {
		return nil, err
	}
	if err := writeKey("document_type", r.DocumentType); err != nil {
		return nil, err
	}
	for _, name := range FieldNames {
		field := r.Fields[name]
		if !field.Present() {
			field = ExtractedField{}
		}
		if err := writeKey(string(name), field); err != nil {
			return nil, err
		}
	}
	if err := writeKey("overall_confidence", r.OverallConfidence); err != nil {
		return nil, err
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	if err := writeKey("warnings", warnings); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type rawField struct {
	Value      json.RawMessage `json:"value"`
	Confidence float64         `json:"confidence"`
	Evidence   []Evidence      `json:"evidence"`
}

func (r *KPIResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out KPIResult
	if v, ok := raw["doc_id"]; ok {
		if err := json.Unmarshal(v, &out.DocID); err != nil {
			return fmt.Errorf("doc_id: %w", err)
		}
	}
	if v, ok := raw["document_type"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("document_type: %w", err)
		}
		t, err := ParseDocumentType(s)
		if err != nil {
			return err
		}
		out.DocumentType = t
	}
	out.Fields = make(Fields, len(FieldNames))
	for _, name := range FieldNames {
		v, ok := raw[string(name)]
		if !ok {
			out.Fields[name] = ExtractedField{}
			continue
		}
		field, err := decodeField(name, v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out.Fields[name] = field
	}
	if v, ok := raw["overall_confidence"]; ok {
		if err := json.Unmarshal(v, &out.OverallConfidence); err != nil {
			return fmt.Errorf("overall_confidence: %w", err)
		}
	}
	out.Warnings = []string{}
	if v, ok := raw["warnings"]; ok {
		if err := json.Unmarshal(v, &out.Warnings); err != nil {
			return fmt.Errorf("warnings: %w", err)
		}
	}
	*r = out
	return nil
}

func decodeField(name FieldName, data []byte) (ExtractedField, error) {
	var rf rawField
	if err := json.Unmarshal(data, &rf); err != nil {
		return ExtractedField{}, err
	}
	field := ExtractedField{Confidence: rf.Confidence, Evidence: rf.Evidence}
	if len(rf.Value) == 0 || string(rf.Value) == "null" {
		return field, nil
	}
	switch name.Kind() {
	case KindDate:
		var d Date
		if err := json.Unmarshal(rf.Value, &d); err != nil {
			return ExtractedField{}, err
		}
		field.Value = d
	case KindNumber:
		var f float64
		if err := json.Unmarshal(rf.Value, &f); err != nil {
			return ExtractedField{}, err
		}
		field.Value = f
	case KindRatio:
		var ratio Ratio
		if err := json.Unmarshal(rf.Value, &ratio); err != nil {
			return ExtractedField{}, err
		}
		field.Value = ratio
	default:
		var s string
		if err := json.Unmarshal(rf.Value, &s); err != nil {
			return ExtractedField{}, err
		}
		field.Value = s
	}
	return field, nil
}
