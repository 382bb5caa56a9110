package kpi

import (
	"regexp"
	"strings"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

var appendixParts = []struct {
	pattern *regexp.Regexp
	kind    domain.DividendKind
}{
	{regexp.MustCompile(`part\s+3a\s*-\s*ordinary\s+dividend`), domain.DividendOrdinary},
	{regexp.MustCompile(`part\s+3b\s*-\s*interim\s+dividend`), domain.DividendInterim},
	{regexp.MustCompile(`part\s+3c\s*-\s*special\s+dividend`), domain.DividendSpecial},
	{regexp.MustCompile(`part\s+3d\s*-\s*final\s+dividend`), domain.DividendFinal},
}

var declaredType = regexp.MustCompile(`type of dividend/distribution\s+([a-z][a-z \-/]{2,40})`)

// keywordKinds is checked in order, both for the declared type value and for
// the loose text fallback.
var keywordKinds = []struct {
	word string
	kind domain.DividendKind
}{
	{"interim", domain.DividendInterim},
	{"final", domain.DividendFinal},
	{"special", domain.DividendSpecial},
}

// DetectDividendKind infers the dividend kind from notice text. Appendix part
// headers win, then a declared "type of dividend/distribution" value, then
// loose keywords. The second return is false when nothing fits.
func DetectDividendKind(text string) (domain.DividendKind, bool) {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return "", false
	}
	for _, part := range appendixParts {
		if part.pattern.MatchString(lower) {
			return part.kind, true
		}
	}
	if m := declaredType.FindStringSubmatch(lower); m != nil {
		declared := m[1]
		if strings.Contains(declared, "ordinary") {
			return domain.DividendOrdinary, true
		}
		for _, k := range keywordKinds {
			if strings.Contains(declared, k.word) {
				return k.kind, true
			}
		}
	}
	for _, k := range keywordKinds {
		if strings.Contains(lower, k.word) {
			return k.kind, true
		}
	}
	if strings.Contains(lower, "ordinary dividend") {
		return domain.DividendOrdinary, true
	}
	return "", false
}

// Summarize projects a result onto the structured view. The dividend kind is
// only looked for on DIVIDEND notices.
func Summarize(result domain.KPIResult, pages []domain.Page) domain.Summary {
	s := domain.Summary{
		DocumentID:   result.DocID,
		DocumentType: result.DocumentType,
		Company: domain.CompanyInfo{
			Name:   stringValue(result, domain.FieldCompanyName),
			Ticker: stringValue(result, domain.FieldTicker),
			ISIN:   stringValue(result, domain.FieldISIN),
		},
		ActionDetails: domain.ActionDetails{
			DividendPerShare:   numberValue(result, domain.FieldDividendPerShare),
			Currency:           stringValue(result, domain.FieldCurrency),
			FrankingPercentage: numberValue(result, domain.FieldFrankingPercentage),
		},
		ImportantDates: domain.ImportantDates{
			AnnouncementDate: dateValue(result, domain.FieldAnnouncementDate),
			ExDate:           dateValue(result, domain.FieldExDate),
			RecordDate:       dateValue(result, domain.FieldRecordDate),
			PaymentDate:      dateValue(result, domain.FieldPaymentDate),
		},
	}
	if r, ok := result.Fields[domain.FieldRatio].Value.(domain.Ratio); ok {
		s.ActionDetails.Ratio = &r
	}
	if result.DocumentType == domain.DocumentTypeDividend {
		texts := make([]string, 0, len(pages))
		for _, p := range pages {
			texts = append(texts, p.Text)
		}
		if kind, ok := DetectDividendKind(strings.Join(texts, "\n")); ok {
			s.ActionDetails.DividendKind = &kind
		}
	}
	return s
}

func stringValue(result domain.KPIResult, name domain.FieldName) *string {
	if v, ok := result.Fields[name].Value.(string); ok {
		return &v
	}
	return nil
}

func numberValue(result domain.KPIResult, name domain.FieldName) *float64 {
	if v, ok := result.Fields[name].Value.(float64); ok {
		return &v
	}
	return nil
}

func dateValue(result domain.KPIResult, name domain.FieldName) *domain.Date {
	if v, ok := result.Fields[name].Value.(domain.Date); ok {
		return &v
	}
	return nil
}
