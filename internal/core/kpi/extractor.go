package kpi

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

// DefaultSnippetContext is the number of characters kept on each side of a
// match when an entry does not set its own width.
const DefaultSnippetContext = 50

var snippetFlattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// ExtractField applies one registry entry to the corpus. Patterns are tried in
// order and pages in ascending order; the first hit decides the outcome.
// A hit that fails normalization yields an empty field and one warning; no hit
// at all yields an empty field and no warning.
func ExtractField(entry Entry, pages []domain.Page, defaultContext int) (domain.ExtractedField, []string) {
	width := entry.SnippetContext
	if width <= 0 {
		width = defaultContext
	}
	for _, pattern := range entry.Patterns {
		for _, page := range pages {
			loc := pattern.FindStringSubmatchIndex(page.Text)
			if loc == nil {
				continue
			}
			captures := make([]string, 0, pattern.NumSubexp())
			for g := 1; g <= pattern.NumSubexp(); g++ {
				start, end := loc[2*g], loc[2*g+1]
				if start < 0 {
					captures = append(captures, "")
					continue
				}
				captures = append(captures, page.Text[start:end])
			}
			value, err := entry.Normalize(captures)
			if err != nil || value == nil {
				return domain.ExtractedField{}, []string{"failed to normalize field " + string(entry.Field)}
			}
			return domain.ExtractedField{
				Value:      value,
				Confidence: entry.BaseConfidence,
				Evidence: []domain.Evidence{{
					Page:    page.PageNum,
					Snippet: Snippet(page.Text, loc[0], loc[1], width),
				}},
			}, nil
		}
	}
	return domain.ExtractedField{}, nil
}

// Snippet cuts text around [start,end) with width bytes of context on each
// side, moved outward to rune boundaries, with line breaks flattened.
func Snippet(text string, start, end, width int) string {
	lo := start - width
	if lo < 0 {
		lo = 0
	}
	hi := end + width
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(snippetFlattener.Replace(text[lo:hi]))
}
