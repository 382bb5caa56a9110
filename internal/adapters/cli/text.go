package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/usecase"
)

type renderer struct {
	w    io.Writer
	json bool

	title *color.Color
	good  *color.Color
	weak  *color.Color
	bad   *color.Color
	dim   *color.Color
}

func newRenderer(w io.Writer, format string, isTerminal func() bool) (*renderer, error) {
	r := &renderer{
		w:     w,
		title: color.New(color.FgWhite, color.Bold),
		good:  color.New(color.FgGreen),
		weak:  color.New(color.FgYellow),
		bad:   color.New(color.FgRed),
		dim:   color.New(color.FgHiBlack),
	}
	switch format {
	case formatJSON:
		r.json = true
	case formatText:
	case formatAuto, "":
		r.json = isTerminal == nil || !isTerminal()
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "output format", fmt.Errorf("unknown format %q", format))
	}
	return r, nil
}

func (r *renderer) writeJSON(v any) error {
	return encodeJSON(r.w, v)
}

func (r *renderer) docType(t domain.DocumentType) string {
	if t == domain.DocumentTypeUnknown {
		return r.weak.Sprint(t)
	}
	return r.good.Sprint(t)
}

// confidence colours a score: green from 0.8, yellow from 0.5, red below.
func (r *renderer) confidence(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	switch {
	case v >= 0.8:
		return r.good.Sprint(s)
	case v >= 0.5:
		return r.weak.Sprint(s)
	default:
		return r.bad.Sprint(s)
	}
}

func (r *renderer) result(res domain.KPIResult) {
	r.title.Fprintf(r.w, "%s", res.DocID)
	fmt.Fprintf(r.w, "  %s  overall %s\n", r.docType(res.DocumentType), r.confidence(res.OverallConfidence))

	width := 0
	for _, name := range domain.FieldNames {
		width = max(width, len(name))
	}
	for _, name := range domain.FieldNames {
		field := res.Fields[name]
		label := fmt.Sprintf("  %-*s  ", width, name)
		if !field.Present() {
			fmt.Fprintln(r.w, label+r.dim.Sprint("-"))
			continue
		}
		page := ""
		if len(field.Evidence) > 0 {
			page = r.dim.Sprintf("  p.%d", field.Evidence[0].Page)
		}
		fmt.Fprintf(r.w, "%s%v  %s%s\n", label, field.Value, r.confidence(field.Confidence), page)
	}
	for _, w := range res.Warnings {
		r.weak.Fprintf(r.w, "  warning: %s\n", w)
	}
}

func (r *renderer) summary(s domain.Summary) {
	r.title.Fprintln(r.w, "summary")
	line := func(label string, value any) {
		fmt.Fprintf(r.w, "  %-20s %s\n", label, r.optional(value))
	}
	line("company", s.Company.Name)
	line("ticker", s.Company.Ticker)
	line("isin", s.Company.ISIN)
	line("dividend_kind", s.ActionDetails.DividendKind)
	line("dividend_per_share", s.ActionDetails.DividendPerShare)
	line("currency", s.ActionDetails.Currency)
	line("franking_percentage", s.ActionDetails.FrankingPercentage)
	line("ratio", s.ActionDetails.Ratio)
	line("announcement_date", s.ImportantDates.AnnouncementDate)
	line("ex_date", s.ImportantDates.ExDate)
	line("record_date", s.ImportantDates.RecordDate)
	line("payment_date", s.ImportantDates.PaymentDate)
}

func (r *renderer) optional(v any) string {
	switch p := v.(type) {
	case *string:
		if p != nil {
			return *p
		}
	case *float64:
		if p != nil {
			return fmt.Sprint(*p)
		}
	case *domain.DividendKind:
		if p != nil {
			return string(*p)
		}
	case *domain.Ratio:
		if p != nil {
			return p.String()
		}
	case *domain.Date:
		if p != nil {
			return p.String()
		}
	}
	return r.dim.Sprint("-")
}

func (r *renderer) scan(entries []usecase.ScanEntry) {
	failed := 0
	for _, e := range entries {
		if e.Err != "" {
			failed++
			fmt.Fprintf(r.w, "%s  %s\n", e.Path, r.bad.Sprint("error: "+firstLine(e.Err)))
			continue
		}
		fmt.Fprintf(r.w, "%s  %s  %s  %d warnings\n",
			e.Path, r.docType(e.Result.DocumentType), r.confidence(e.Result.OverallConfidence), len(e.Result.Warnings))
	}
	r.title.Fprintf(r.w, "%d files, %d failed\n", len(entries), failed)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
