package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

func TestQueryListClampsLimit(t *testing.T) {
	docs := &docRepoFake{docs: []domain.Document{{ID: "a"}}}
	uc := NewQueryUseCase(docs, &resultRepoFake{}, &storageFake{}, &exporterFake{})

	for limit, want := range map[int]int{0: defaultListLimit, -3: defaultListLimit, 10: 10, 10000: maxListLimit} {
		if _, err := uc.List(context.Background(), limit); err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if docs.listLimit != want {
			t.Fatalf("List(%d) used limit %d, want %d", limit, docs.listLimit, want)
		}
	}
}

func TestQueryGetResultNotFound(t *testing.T) {
	uc := NewQueryUseCase(&docRepoFake{}, &resultRepoFake{}, &storageFake{}, &exporterFake{})

	_, err := uc.GetResult(context.Background(), "missing")
	if !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
}

func TestQueryGetSummary(t *testing.T) {
	engine := newEngine(t)
	pages := []domain.Page{{PageNum: 1, Text: processNotice + "Interim dividend\n"}}
	result, err := engine.Run("doc-1", pages)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	results := &resultRepoFake{
		result: &result,
		raw:    &domain.RawExtraction{DocID: "doc-1", Pages: pages},
	}
	uc := NewQueryUseCase(&docRepoFake{}, results, &storageFake{}, &exporterFake{})

	summary, err := uc.GetSummary(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if summary.ActionDetails.DividendKind == nil || *summary.ActionDetails.DividendKind != domain.DividendInterim {
		t.Fatalf("expected INTERIM dividend kind, got %+v", summary.ActionDetails)
	}
	if summary.Company.Name == nil || *summary.Company.Name != "BHP Group Limited" {
		t.Fatalf("unexpected company: %+v", summary.Company)
	}
}

func TestQueryOpenSource(t *testing.T) {
	docs := &docRepoFake{doc: &domain.Document{ID: "doc-1", StoragePath: "doc-1_notice.pdf"}}
	uc := NewQueryUseCase(docs, &resultRepoFake{}, &storageFake{content: "%PDF"}, &exporterFake{})

	doc, rc, err := uc.OpenSource(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if doc.ID != "doc-1" || string(body) != "%PDF" {
		t.Fatalf("unexpected source: %s %q", doc.ID, body)
	}

	_, _, err = NewQueryUseCase(&docRepoFake{}, &resultRepoFake{}, &storageFake{}, &exporterFake{}).OpenSource(context.Background(), "x")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestQueryExportResults(t *testing.T) {
	results := &resultRepoFake{results: []domain.KPIResult{{DocID: "a"}, {DocID: "b"}}}
	exporter := &exporterFake{}
	uc := NewQueryUseCase(&docRepoFake{}, results, &storageFake{}, exporter)

	var buf bytes.Buffer
	if err := uc.ExportResults(context.Background(), 0, &buf); err != nil {
		t.Fatalf("ExportResults() error = %v", err)
	}
	if len(exporter.exported) != 2 || buf.String() != "xlsx" {
		t.Fatalf("unexpected export: %d results, body %q", len(exporter.exported), buf.String())
	}
	if results.listLimit != defaultListLimit {
		t.Fatalf("expected default limit, got %d", results.listLimit)
	}
}
