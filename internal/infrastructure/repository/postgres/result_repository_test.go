package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/resilience"
)

func newResultRepoWithMock(t *testing.T, exec *resilience.Executor) (*ResultRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewResultRepository(db, exec), mock, func() { _ = db.Close() }
}

func sampleResult() domain.KPIResult {
	return domain.KPIResult{
		DocID:        "doc-1",
		DocumentType: domain.DocumentTypeDividend,
		Fields: domain.Fields{
			domain.FieldTicker: {Value: "BHP", Confidence: 0.9, Evidence: []domain.Evidence{{Page: 1, Snippet: "ASX Code: BHP"}}},
			domain.FieldExDate: {Value: domain.NewDate(2024, time.March, 7), Confidence: 0.9, Evidence: []domain.Evidence{{Page: 1, Snippet: "Ex Date 7 March 2024"}}},
		},
		OverallConfidence: 0.9,
		Warnings:          []string{},
	}
}

func TestGetResultDecodesStoredJSON(t *testing.T) {
	repo, mock, done := newResultRepoWithMock(t, nil)
	defer done()

	payload, err := json.Marshal(sampleResult())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mock.ExpectQuery("SELECT result").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(payload))

	got, err := repo.GetResult(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	if got.DocumentType != domain.DocumentTypeDividend {
		t.Fatalf("document type = %s", got.DocumentType)
	}
	exDate, ok := got.Fields[domain.FieldExDate].Value.(domain.Date)
	if !ok || exDate.String() != "2024-03-07" {
		t.Fatalf("ex_date = %#v", got.Fields[domain.FieldExDate].Value)
	}
	if got.Fields[domain.FieldISIN].Present() {
		t.Fatalf("isin should be absent")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetResultReturnsResultNotFound(t *testing.T) {
	repo, mock, done := newResultRepoWithMock(t, nil)
	defer done()

	mock.ExpectQuery("SELECT result").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetResult(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
}

func TestGetRawExtractionDecodesPages(t *testing.T) {
	repo, mock, done := newResultRepoWithMock(t, nil)
	defer done()

	raw := domain.NewRawExtraction("doc-1", []domain.Page{{PageNum: 1, Text: "Record Date 1 March 2024"}}, time.Now())
	payload, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mock.ExpectQuery("SELECT raw").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"raw"}).AddRow(payload))

	got, err := repo.GetRawExtraction(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetRawExtraction() error = %v", err)
	}
	if len(got.Pages) != 1 || got.Pages[0].Text != "Record Date 1 March 2024" {
		t.Fatalf("unexpected pages: %+v", got.Pages)
	}
}

func TestSaveResultUpserts(t *testing.T) {
	repo, mock, done := newResultRepoWithMock(t, nil)
	defer done()

	mock.ExpectExec("INSERT INTO kpi_results").
		WithArgs("doc-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveResult(context.Background(), sampleResult()); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultRetriesSerializationFailure(t *testing.T) {
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})
	repo, mock, done := newResultRepoWithMock(t, exec)
	defer done()

	mock.ExpectExec("INSERT INTO kpi_results").
		WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	mock.ExpectExec("INSERT INTO kpi_results").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveResult(context.Background(), sampleResult()); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRawDoesNotRetryConstraintViolation(t *testing.T) {
	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 3, RetryInitialBackoff: time.Millisecond})
	repo, mock, done := newResultRepoWithMock(t, exec)
	defer done()

	mock.ExpectExec("INSERT INTO kpi_results").
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "foreign key violation"})

	err := repo.SaveRawExtraction(context.Background(), domain.NewRawExtraction("orphan", nil, time.Now()))
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected pg error to be preserved, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListResultsSkipsMissingResults(t *testing.T) {
	repo, mock, done := newResultRepoWithMock(t, nil)
	defer done()

	payload, err := json.Marshal(sampleResult())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mock.ExpectQuery("WHERE result IS NOT NULL").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(payload))

	results, err := repo.ListResults(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	if len(results) != 1 || results[0].DocID != "doc-1" {
		t.Fatalf("unexpected results: %+v", results)
	}
}
