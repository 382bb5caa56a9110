package kpi

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

// Normalizer converts the capture groups of a pattern hit into a typed value.
type Normalizer func(captures []string) (any, error)

var errEmptyCapture = errors.New("empty capture")

var dateLayouts = []string{
	"2/1/2006",
	"2006-01-02",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
}

var ordinalSuffix = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)

var supportedCurrencies = map[string]string{
	"AUD": "AUD",
	"USD": "USD",
	"GBP": "GBP",
	"EUR": "EUR",
	"JPY": "JPY",
	"CNY": "CNY",
	"NZD": "NZD",
	"A$":  "AUD",
	"US$": "USD",
	"NZ$": "NZD",
}

func first(captures []string) (string, error) {
	if len(captures) == 0 {
		return "", errEmptyCapture
	}
	s := strings.TrimSpace(captures[0])
	if s == "" {
		return "", errEmptyCapture
	}
	return s, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeName(captures []string) (any, error) {
	s, err := first(captures)
	if err != nil {
		return nil, err
	}
	s = strings.TrimRight(collapseSpaces(s), " .,;:-")
	if s == "" {
		return nil, errEmptyCapture
	}
	return s, nil
}

func normalizeUpper(captures []string) (any, error) {
	s, err := first(captures)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

// normalizeVerbatim keeps the capture as written so format rules see the
// original casing.
func normalizeVerbatim(captures []string) (any, error) {
	s, err := first(captures)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func normalizeCurrency(captures []string) (any, error) {
	s, err := first(captures)
	if err != nil {
		return nil, err
	}
	code, ok := supportedCurrencies[strings.ToUpper(s)]
	if !ok {
		return nil, fmt.Errorf("unsupported currency %q", s)
	}
	return code, nil
}

func normalizeDate(captures []string) (any, error) {
	s, err := first(captures)
	if err != nil {
		return nil, err
	}
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.NewReplacer(",", " ", ".", "").Replace(s)
	s = collapseSpaces(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOf(t), nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", captures[0])
}

func parseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("amount %q out of range", raw)
	}
	return v, nil
}

// normalizeDividend reads an amount and, when a second capture carries a
// cents unit, converts it to whole currency units.
func normalizeDividend(captures []string) (any, error) {
	s, err := first(captures)
	if err != nil {
		return nil, err
	}
	v, err := parseAmount(s)
	if err != nil {
		return nil, err
	}
	if len(captures) > 1 && strings.TrimSpace(captures[1]) != "" {
		v /= 100
	}
	return v, nil
}

func normalizePercentage(captures []string) (any, error) {
	s, err := first(captures)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(s, "fully") {
		return 100.0, nil
	}
	v, err := parseAmount(s)
	if err != nil {
		return nil, err
	}
	if v > 100 {
		return nil, fmt.Errorf("percentage %v above 100", v)
	}
	return v, nil
}

func normalizeRatio(captures []string) (any, error) {
	if len(captures) < 2 {
		return nil, errEmptyCapture
	}
	x, err := strconv.Atoi(strings.TrimSpace(captures[0]))
	if err != nil {
		return nil, fmt.Errorf("ratio numerator: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(captures[1]))
	if err != nil {
		return nil, fmt.Errorf("ratio denominator: %w", err)
	}
	if y == 0 {
		return nil, errors.New("ratio denominator is zero")
	}
	return domain.Ratio{Numerator: x, Denominator: y}, nil
}
