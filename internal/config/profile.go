package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/kpi"
)

// EngineProfile is the optional YAML tuning file for the extraction engine.
//
//	keywords:
//	  DIVIDEND: [dividend, distribution, payout]
//	base_confidence:
//	  company_name: 0.75
//	snippet_context: 80
type EngineProfile struct {
	Keywords       map[string][]string `yaml:"keywords"`
	BaseConfidence map[string]float64  `yaml:"base_confidence"`
	SnippetContext int                 `yaml:"snippet_context"`
}

// LoadEngineProfile reads path; an empty path yields the zero profile.
func LoadEngineProfile(path string) (EngineProfile, error) {
	if path == "" {
		return EngineProfile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineProfile{}, fmt.Errorf("read engine profile: %w", err)
	}
	return ParseEngineProfile(data)
}

// ParseEngineProfile rejects unknown keys so a typo never silently falls back
// to defaults.
func ParseEngineProfile(data []byte) (EngineProfile, error) {
	var p EngineProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return EngineProfile{}, domain.WrapError(domain.ErrInvalidInput, "parse engine profile", err)
	}
	return p, nil
}

// Options converts the profile into engine options. Field overrides are
// applied in the fixed field order.
func (p EngineProfile) Options() ([]kpi.Option, error) {
	var opts []kpi.Option

	if len(p.Keywords) > 0 {
		keywords := make(kpi.Keywords, len(p.Keywords))
		for raw, words := range p.Keywords {
			docType, err := domain.ParseDocumentType(raw)
			if err != nil {
				return nil, err
			}
			keywords[docType] = words
		}
		opts = append(opts, kpi.WithKeywords(keywords))
	}

	for raw := range p.BaseConfidence {
		if _, err := domain.ParseFieldName(raw); err != nil {
			return nil, err
		}
	}
	for _, name := range domain.FieldNames {
		if v, ok := p.BaseConfidence[string(name)]; ok {
			opts = append(opts, kpi.WithBaseConfidence(name, v))
		}
	}

	if p.SnippetContext != 0 {
		opts = append(opts, kpi.WithSnippetContext(p.SnippetContext))
	}
	return opts, nil
}

// NewEngine builds the extraction engine from the profile at path.
func NewEngine(path string) (*kpi.Engine, error) {
	profile, err := LoadEngineProfile(path)
	if err != nil {
		return nil, err
	}
	opts, err := profile.Options()
	if err != nil {
		return nil, err
	}
	engine, err := kpi.NewEngine(opts...)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, nil
}
