package kpi

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

func present(value any, confidence float64) domain.ExtractedField {
	return domain.ExtractedField{Value: value, Confidence: confidence, Evidence: []domain.Evidence{{Page: 1, Snippet: "x"}}}
}

func TestValidateDateOrder(t *testing.T) {
	fields := domain.Fields{
		domain.FieldExDate:      present(domain.NewDate(2026, time.March, 15), 0.9),
		domain.FieldRecordDate:  present(domain.NewDate(2026, time.March, 15), 0.9),
		domain.FieldPaymentDate: present(domain.NewDate(2026, time.April, 1), 0.9),
	}
	out, warnings := Validate(fields, DefaultRules())
	assert.Empty(t, warnings)
	assert.Equal(t, 0.9, out[domain.FieldExDate].Confidence)

	fields[domain.FieldPaymentDate] = present(domain.NewDate(2026, time.March, 1), 0.9)
	out, warnings = Validate(fields, DefaultRules())
	assert.Equal(t, []string{"date order violation"}, warnings)
	assert.InDelta(t, 0.7, out[domain.FieldPaymentDate].Confidence, 1e-9)
	assert.Equal(t, 0.9, fields[domain.FieldPaymentDate].Confidence, "input must not be modified")

	delete(fields, domain.FieldExDate)
	_, warnings = Validate(fields, DefaultRules())
	assert.Empty(t, warnings, "rule needs all three dates")
}

func TestValidateNumeric(t *testing.T) {
	fields := domain.Fields{
		domain.FieldDividendPerShare:   present(math.NaN(), 0.85),
		domain.FieldFrankingPercentage: present("abc", 0.2),
	}
	out, warnings := Validate(fields, DefaultRules())
	assert.Equal(t, []string{
		"failed numeric parse for dividend_per_share",
		"failed numeric parse for franking_percentage",
	}, warnings)
	assert.InDelta(t, 0.55, out[domain.FieldDividendPerShare].Confidence, 1e-9)
	assert.Equal(t, 0.0, out[domain.FieldFrankingPercentage].Confidence, "clamped at zero")

	fields = domain.Fields{domain.FieldDividendPerShare: present(-1.0, 0.85)}
	_, warnings = Validate(fields, DefaultRules())
	assert.Len(t, warnings, 1)
}

func TestValidateRuleOrderDoesNotChangeConfidence(t *testing.T) {
	fields := domain.Fields{
		domain.FieldISIN:             present("BAD", 0.9),
		domain.FieldDividendPerShare: present(-2.0, 0.85),
	}
	rules := DefaultRules()
	reversed := []Rule{rules[2], rules[1], rules[0]}

	a, _ := Validate(fields, rules)
	b, _ := Validate(fields, reversed)
	for name := range fields {
		assert.InDelta(t, a[name].Confidence, b[name].Confidence, 1e-12, "field %s", name)
	}
}

func TestValidateIgnoresAbsentFields(t *testing.T) {
	fields := domain.Fields{domain.FieldISIN: {}}
	out, warnings := Validate(fields, DefaultRules())
	assert.Empty(t, warnings)
	assert.Zero(t, out[domain.FieldISIN].Confidence)
}
