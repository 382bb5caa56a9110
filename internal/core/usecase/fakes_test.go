package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type docRepoFake struct {
	doc         *domain.Document
	docs        []domain.Document
	created     *domain.Document
	createErr   error
	getErr      error
	summaryErr  error
	statusErr   error
	failErr     error
	statusCalls []statusCall
	summary     *domain.ResultSummary
	listLimit   int
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *docRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *docRepoFake) List(_ context.Context, limit int) ([]domain.Document, error) {
	f.listLimit = limit
	return f.docs, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failErr != nil {
		return f.failErr
	}
	return f.statusErr
}

func (f *docRepoFake) SaveSummary(_ context.Context, _ string, summary domain.ResultSummary) error {
	if f.summaryErr != nil {
		return f.summaryErr
	}
	f.summary = &summary
	return nil
}

type resultRepoFake struct {
	raw       *domain.RawExtraction
	result    *domain.KPIResult
	results   []domain.KPIResult
	saveErr   error
	listLimit int
}

func (f *resultRepoFake) SaveRawExtraction(_ context.Context, raw domain.RawExtraction) error {
	f.raw = &raw
	return nil
}

func (f *resultRepoFake) GetRawExtraction(context.Context, string) (*domain.RawExtraction, error) {
	if f.raw == nil {
		return nil, domain.ErrResultNotFound
	}
	return f.raw, nil
}

func (f *resultRepoFake) SaveResult(_ context.Context, result domain.KPIResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.result = &result
	return nil
}

func (f *resultRepoFake) GetResult(context.Context, string) (*domain.KPIResult, error) {
	if f.result == nil {
		return nil, domain.ErrResultNotFound
	}
	return f.result, nil
}

func (f *resultRepoFake) ListResults(_ context.Context, limit int) ([]domain.KPIResult, error) {
	f.listLimit = limit
	return f.results, nil
}

type storageFake struct {
	savedKey  string
	savedBody string
	content   string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

type queueFake struct {
	documentID string
	err        error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.documentID = documentID
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

// pageExtractorFake treats .txt files as one page per form feed.
type pageExtractorFake struct {
	err error
}

func (f *pageExtractorFake) CanHandle(filename, _ string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".txt")
}

func (f *pageExtractorFake) ExtractPages(_ context.Context, _ string, data []byte) ([]domain.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	var pages []domain.Page
	for i, chunk := range bytes.Split(data, []byte("\f")) {
		pages = append(pages, domain.Page{PageNum: i + 1, Text: string(chunk)})
	}
	return pages, nil
}

type corpusExtractorFake struct {
	pages []domain.Page
	err   error
}

func (f *corpusExtractorFake) Extract(_ context.Context, doc *domain.Document) (*domain.RawExtraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw := domain.RawExtraction{DocID: doc.ID, Pages: f.pages, OCRUsedPages: []int{}}
	return &raw, nil
}

type validatorFake struct {
	err   error
	calls int
}

func (f *validatorFake) ValidateResult(domain.KPIResult) error {
	f.calls++
	return f.err
}

type observerFake struct {
	results []domain.KPIResult
}

func (f *observerFake) ObserveResult(result domain.KPIResult) {
	f.results = append(f.results, result)
}

type exporterFake struct {
	exported []domain.KPIResult
}

func (f *exporterFake) Export(results []domain.KPIResult, w io.Writer) error {
	f.exported = results
	_, err := io.WriteString(w, "xlsx")
	return err
}
