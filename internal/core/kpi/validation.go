package kpi

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

const (
	dateOrderPenalty = -0.2
	isinPenalty      = -0.3
	numericPenalty   = -0.3
)

var strictISIN = regexp.MustCompile(`^AU[0-9A-Z]{10}$`)

// Adjustment is a confidence delta for one field.
type Adjustment struct {
	Field domain.FieldName
	Delta float64
}

// Finding is one rule outcome: a warning and the deltas that go with it.
type Finding struct {
	Warning     string
	Adjustments []Adjustment
}

// Rule inspects the extracted fields without modifying them.
type Rule struct {
	Name  string
	Check func(fields domain.Fields) []Finding
}

func DefaultRules() []Rule {
	return []Rule{
		{Name: "date_order", Check: checkDateOrder},
		{Name: "isin_format", Check: checkISINFormat},
		{Name: "numeric_parse", Check: checkNumeric},
	}
}

// Validate runs every rule against the same input snapshot, then applies the
// summed deltas clamped to [0,1]. Warnings keep rule order.
func Validate(fields domain.Fields, rules []Rule) (domain.Fields, []string) {
	warnings := make([]string, 0)
	deltas := make(map[domain.FieldName]float64)
	for _, rule := range rules {
		for _, finding := range rule.Check(fields) {
			if finding.Warning != "" {
				warnings = append(warnings, finding.Warning)
			}
			for _, adj := range finding.Adjustments {
				deltas[adj.Field] += adj.Delta
			}
		}
	}

	out := make(domain.Fields, len(fields))
	for name, field := range fields {
		if delta, ok := deltas[name]; ok && field.Present() {
			field.Confidence = clamp(field.Confidence + delta)
		}
		out[name] = field
	}
	return out, warnings
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func checkDateOrder(fields domain.Fields) []Finding {
	ex, okEx := fields[domain.FieldExDate].Value.(domain.Date)
	record, okRecord := fields[domain.FieldRecordDate].Value.(domain.Date)
	payment, okPayment := fields[domain.FieldPaymentDate].Value.(domain.Date)
	if !okEx || !okRecord || !okPayment {
		return nil
	}
	if ex.Compare(record) <= 0 && record.Compare(payment) <= 0 {
		return nil
	}
	return []Finding{{
		Warning: "date order violation",
		Adjustments: []Adjustment{
			{Field: domain.FieldExDate, Delta: dateOrderPenalty},
			{Field: domain.FieldRecordDate, Delta: dateOrderPenalty},
			{Field: domain.FieldPaymentDate, Delta: dateOrderPenalty},
		},
	}}
}

func checkISINFormat(fields domain.Fields) []Finding {
	field := fields[domain.FieldISIN]
	if !field.Present() {
		return nil
	}
	if s, ok := field.Value.(string); ok && strictISIN.MatchString(s) {
		return nil
	}
	return []Finding{{
		Warning:     "invalid ISIN format",
		Adjustments: []Adjustment{{Field: domain.FieldISIN, Delta: isinPenalty}},
	}}
}

func checkNumeric(fields domain.Fields) []Finding {
	var findings []Finding
	for _, name := range []domain.FieldName{domain.FieldDividendPerShare, domain.FieldFrankingPercentage} {
		field := fields[name]
		if !field.Present() || validNumber(field.Value) {
			continue
		}
		findings = append(findings, Finding{
			Warning:     "failed numeric parse for " + string(name),
			Adjustments: []Adjustment{{Field: name, Delta: numericPenalty}},
		})
	}
	return findings
}

func validNumber(v any) bool {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		if err != nil {
			return false
		}
		f = parsed
	default:
		return false
	}
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
