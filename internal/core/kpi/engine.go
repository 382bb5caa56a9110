// Package kpi turns a page corpus into a KPIResult: classification, pattern
// extraction, cross-field validation and confidence aggregation. It performs no
// I/O and holds no mutable state after construction, so one Engine may serve
// concurrent callers.
package kpi

import (
	"fmt"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

type Engine struct {
	keywords       Keywords
	classifier     *Classifier
	registry       Registry
	rules          []Rule
	snippetContext int
}

type Option func(*Engine) error

// WithKeywords replaces the keyword list of the given document types.
func WithKeywords(overrides Keywords) Option {
	return func(e *Engine) error {
		for docType, words := range overrides {
			if _, err := domain.ParseDocumentType(string(docType)); err != nil || docType == domain.DocumentTypeUnknown {
				return fmt.Errorf("%w: keywords for unsupported document type %q", domain.ErrInvalidInput, docType)
			}
			e.keywords[docType] = append([]string(nil), words...)
		}
		return nil
	}
}

func WithBaseConfidence(field domain.FieldName, value float64) Option {
	return func(e *Engine) error {
		reg, err := e.registry.withBaseConfidence(field, value)
		if err != nil {
			return err
		}
		e.registry = reg
		return nil
	}
}

func WithSnippetContext(chars int) Option {
	return func(e *Engine) error {
		if chars <= 0 {
			return fmt.Errorf("%w: snippet context must be positive, got %d", domain.ErrInvalidInput, chars)
		}
		e.snippetContext = chars
		return nil
	}
}

func WithRegistry(reg Registry) Option {
	return func(e *Engine) error {
		e.registry = reg
		return nil
	}
}

func WithRules(rules ...Rule) Option {
	return func(e *Engine) error {
		e.rules = append([]Rule(nil), rules...)
		return nil
	}
}

func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		keywords:       DefaultKeywords(),
		registry:       DefaultRegistry(),
		rules:          DefaultRules(),
		snippetContext: DefaultSnippetContext,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.classifier = NewClassifier(e.keywords)
	return e, nil
}

// Classify exposes the classifier on its own.
func (e *Engine) Classify(pages []domain.Page) domain.DocumentType {
	return e.classifier.Classify(pages)
}

func (e *Engine) Registry() Registry { return e.registry }

// Run processes one corpus. Field-level problems end up as warnings inside the
// result; the only error is a structurally malformed corpus.
func (e *Engine) Run(docID string, pages []domain.Page) (domain.KPIResult, error) {
	if err := domain.ValidateCorpus(pages); err != nil {
		return domain.KPIResult{}, err
	}

	docType := e.classifier.Classify(pages)

	fields := make(domain.Fields, len(domain.FieldNames))
	warnings := make([]string, 0)
	for _, entry := range e.registry.entries {
		field, ws := ExtractField(entry, pages, e.snippetContext)
		fields[entry.Field] = field
		warnings = append(warnings, ws...)
	}

	validated, validationWarnings := Validate(fields, e.rules)
	warnings = append(warnings, validationWarnings...)

	return Assemble(docID, docType, validated, warnings), nil
}
