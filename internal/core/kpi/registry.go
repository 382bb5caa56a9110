package kpi

import (
	"fmt"
	"regexp"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

// Entry is the declarative extraction rule for one field. Patterns are tried
// in order; every pattern needs at least one capture group.
type Entry struct {
	Field          domain.FieldName
	Patterns       []*regexp.Regexp
	Normalize      Normalizer
	BaseConfidence float64
	// SnippetContext is the number of characters kept on each side of a match;
	// zero means the engine default.
	SnippetContext int
}

// Registry is an ordered, read-only set of entries keyed by field.
type Registry struct {
	entries []Entry
}

func NewRegistry(entries ...Entry) (Registry, error) {
	seen := make(map[domain.FieldName]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, err := domain.ParseFieldName(string(e.Field)); err != nil {
			return Registry{}, err
		}
		if _, dup := seen[e.Field]; dup {
			return Registry{}, fmt.Errorf("%w: duplicate registry entry for %s", domain.ErrInvalidInput, e.Field)
		}
		if len(e.Patterns) == 0 || e.Normalize == nil {
			return Registry{}, fmt.Errorf("%w: registry entry %s needs patterns and a normalizer", domain.ErrInvalidInput, e.Field)
		}
		for _, p := range e.Patterns {
			if p.NumSubexp() < 1 {
				return Registry{}, fmt.Errorf("%w: pattern %q for %s has no capture group", domain.ErrInvalidInput, p.String(), e.Field)
			}
		}
		if e.BaseConfidence < 0 || e.BaseConfidence > 1 {
			return Registry{}, fmt.Errorf("%w: base confidence %v for %s outside [0,1]", domain.ErrInvalidInput, e.BaseConfidence, e.Field)
		}
		seen[e.Field] = struct{}{}
		out = append(out, e)
	}
	return Registry{entries: out}, nil
}

func (r Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r Registry) Entry(field domain.FieldName) (Entry, bool) {
	for _, e := range r.entries {
		if e.Field == field {
			return e, true
		}
	}
	return Entry{}, false
}

func (r Registry) withBaseConfidence(field domain.FieldName, value float64) (Registry, error) {
	entries := r.Entries()
	for i := range entries {
		if entries[i].Field == field {
			entries[i].BaseConfidence = value
			return NewRegistry(entries...)
		}
	}
	return Registry{}, fmt.Errorf("%w: no registry entry for %s", domain.ErrInvalidInput, field)
}

const (
	datePattern = `(\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]{3,9}\.?,?\s+\d{4}|[A-Za-z]{3,9}\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})`
	dateLead    = `[\s:\-–]*(?:(?i:is|of|on|will\s+be)\s+)?`
	amount      = `(\d[\d,]*(?:\.\d+)?)`
	currencies  = `(AUD|USD|GBP|EUR|JPY|CNY|NZD)`
	perShare    = `(?i:per\s+(?:\+?share|\+?security|unit))`
	percent     = `(\d{1,3}(?:\.\d+)?)\s*%`
	companyTail = `(?:Limited|LIMITED|Ltd\.?|LTD|PLC|plc|Group|GROUP|Corporation|Corp\.?|Inc\.?|Holdings|HOLDINGS|Trust|Fund|N\.?L\.?)`
)

func dateEntry(field domain.FieldName, labels ...string) Entry {
	patterns := make([]*regexp.Regexp, 0, len(labels))
	for _, label := range labels {
		patterns = append(patterns, regexp.MustCompile(label+dateLead+datePattern))
	}
	return Entry{
		Field:          field,
		Patterns:       patterns,
		Normalize:      normalizeDate,
		BaseConfidence: 0.9,
	}
}

// DefaultRegistry is the built-in rule set for Australian corporate-action
// notices.
func DefaultRegistry() Registry {
	reg, err := NewRegistry(
		Entry{
			Field: domain.FieldCompanyName,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i:\b(?:entity\s+name|name\s+of\s+\+?entity))[ \t]*[:\-]?[ \t]*\n?[ \t]*([A-Za-z0-9][^\n]{1,100})`),
				regexp.MustCompile(`(?m)^[ \t]*([A-Z][A-Za-z0-9&.,'()\- ]{0,80}?[ \t]` + companyTail + `)[ \t]*$`),
				regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.'()\-]*(?:[ \t]+[A-Z][A-Za-z0-9&.'()\-]*){0,6}?(?:[ \t]+` + companyTail + `)+)\b`),
			},
			Normalize:      normalizeName,
			BaseConfidence: 0.8,
		},
		Entry{
			Field: domain.FieldTicker,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i:\bASX\s+(?:\+?security\s+code|issuer\s+code|code|ticker))[ \t]*[:\-]?\s*([A-Z0-9]{2,6})\b`),
				regexp.MustCompile(`\((?:ASX|NYSE|LSE|NZX)\s*:\s*([A-Z0-9]{2,6})\)`),
				regexp.MustCompile(`(?i:\bticker)[ \t]*[:\-]?[ \t]*([A-Z0-9]{2,6})\b`),
			},
			Normalize:      normalizeUpper,
			BaseConfidence: 0.9,
		},
		Entry{
			Field: domain.FieldISIN,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i:\bISIN\b(?:\s+code)?)[^A-Za-z0-9\n]{0,10}((?i:AU)[0-9A-Za-z]{10})\b`),
				regexp.MustCompile(`\b((?i:AU)[0-9][0-9A-Za-z]{9})\b`),
			},
			Normalize:      normalizeVerbatim,
			BaseConfidence: 0.9,
		},
		dateEntry(domain.FieldExDate,
			`(?i:\bex[\s\-]*(?:dividend[\s\-]+|entitlement[\s\-]+)?date)`,
			`(?i:\btrade\s+ex[\s\-]*(?:dividend|entitlement)?)`,
		),
		dateEntry(domain.FieldRecordDate,
			`(?i:\brecord\s+date)`,
		),
		dateEntry(domain.FieldPaymentDate,
			`(?i:\b(?:payment|pay)\s+date)`,
			`(?i:\bdate\s+(?:of\s+)?payment)`,
		),
		Entry{
			Field: domain.FieldDividendPerShare,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i:amount\s+per\s+\+?security|dividend\s+per\s+(?:share|\+?security)|distribution\s+per\s+(?:share|unit))[^\d\n]{0,40}?` + amount),
				regexp.MustCompile(`(?i:dividend|distribution)[^\d\n]{0,60}?(?:A\$|US\$|NZ\$|\$|AUD|USD|NZD)[ \t]*` + amount + `[ \t]*` + perShare),
				regexp.MustCompile(`(?i:dividend|distribution)[^\d\n]{0,60}?` + amount + `[ \t]*((?i:cents|c))[ \t]+` + perShare),
			},
			Normalize:      normalizeDividend,
			BaseConfidence: 0.85,
		},
		Entry{
			Field: domain.FieldCurrency,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i:\bcurrency\b)[^\n]{0,60}?\b` + currencies + `\b`),
				regexp.MustCompile(`\b` + currencies + `\b`),
				regexp.MustCompile(`(A\$|US\$|NZ\$)`),
			},
			Normalize:      normalizeCurrency,
			BaseConfidence: 0.95,
		},
		Entry{
			Field: domain.FieldFrankingPercentage,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i:franked\s+percentage|franking\s+percentage|percentage\s+franked|franking\s+level)[^\d\n]{0,20}` + percent),
				regexp.MustCompile(percent + `\s*(?i:franked)\b`),
				regexp.MustCompile(`(?i:franked\s+(?:to|at)\s+)` + percent),
				regexp.MustCompile(`(?i:\b(fully)\s+franked\b)`),
			},
			Normalize:      normalizePercentage,
			BaseConfidence: 0.9,
		},
		Entry{
			Field: domain.FieldRatio,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i:ratio|basis|split|consolidation|subdivision)[^\d\n]{0,40}?(\d+)[ \t]*(?i:(?:new[ \t]+)?(?:\+?shares?|securities|units)[ \t]+)?(?i:for|:)[ \t]*(?i:every[ \t]+)?(\d+)\b`),
				// Issue and offer wording mentions closing times, so only "X for Y" counts there.
				regexp.MustCompile(`(?i:issue|offer)[^\d\n]{0,40}?(\d+)[ \t]*(?i:(?:new[ \t]+)?(?:\+?shares?|securities|units)[ \t]+)?(?i:for)[ \t]+(?i:every[ \t]+)?(\d+)\b`),
				regexp.MustCompile(`\b(\d+)[ \t]+(?i:(?:new[ \t]+)?(?:\+?shares?|securities|units)[ \t]+)?(?i:for)[ \t]+(?i:every[ \t]+)?(\d+)\b`),
			},
			Normalize:      normalizeRatio,
			BaseConfidence: 0.85,
		},
		dateEntry(domain.FieldAnnouncementDate,
			`(?i:\bannouncement\s+date)`,
			`(?i:\bdate\s+of\s+(?:this\s+)?announcement)`,
			`(?m)^[ \t]*(?i:date)`,
		),
	)
	if err != nil {
		panic(err)
	}
	return reg
}
