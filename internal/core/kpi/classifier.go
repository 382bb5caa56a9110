package kpi

import (
	"strings"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

// Keywords lists, per document type, the words counted by the classifier.
type Keywords map[domain.DocumentType][]string

func DefaultKeywords() Keywords {
	return Keywords{
		domain.DocumentTypeDividend:      {"dividend", "distribution"},
		domain.DocumentTypeSplit:         {"split", "subdivision"},
		domain.DocumentTypeBonus:         {"bonus", "scrip"},
		domain.DocumentTypeRights:        {"rights", "entitlements"},
		domain.DocumentTypeCapitalReturn: {"capital", "return", "buyback"},
	}
}

// Classifier picks a DocumentType by case-insensitive keyword frequency.
type Classifier struct {
	keywords Keywords
}

func NewClassifier(keywords Keywords) *Classifier {
	normalized := make(Keywords, len(keywords))
	for docType, words := range keywords {
		list := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				list = append(list, w)
			}
		}
		normalized[docType] = list
	}
	return &Classifier{keywords: normalized}
}

// Scores counts keyword occurrences per document type across all pages.
func (c *Classifier) Scores(pages []domain.Page) map[domain.DocumentType]int {
	scores := make(map[domain.DocumentType]int, len(domain.DocumentTypePriority))
	for _, docType := range domain.DocumentTypePriority {
		scores[docType] = 0
	}
	for _, page := range pages {
		lower := strings.ToLower(page.Text)
		for docType, words := range c.keywords {
			for _, w := range words {
				scores[docType] += strings.Count(lower, w)
			}
		}
	}
	return scores
}

// Classify returns the type with the strictly highest score. Ties resolve by
// domain.DocumentTypePriority; no hits at all yields UNKNOWN.
func (c *Classifier) Classify(pages []domain.Page) domain.DocumentType {
	scores := c.Scores(pages)
	best := domain.DocumentTypeUnknown
	bestScore := 0
	for _, docType := range domain.DocumentTypePriority {
		if scores[docType] > bestScore {
			best = docType
			bestScore = scores[docType]
		}
	}
	return best
}
