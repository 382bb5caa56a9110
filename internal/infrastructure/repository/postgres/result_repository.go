package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/infrastructure/resilience"
)

// ResultRepository keeps one kpi_results row per document holding the raw
// page corpus and the serialized KPIResult as JSONB.
type ResultRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

// NewResultRepository wires an optional executor used to retry writes that
// fail with a temporary database error.
func NewResultRepository(db *sql.DB, executor *resilience.Executor) *ResultRepository {
	return &ResultRepository{db: db, executor: executor}
}

func (r *ResultRepository) SaveRawExtraction(ctx context.Context, raw domain.RawExtraction) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal raw extraction: %w", err)
	}
	return r.write(ctx, "postgres.save_raw", `
INSERT INTO kpi_results (document_id, raw, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (document_id) DO UPDATE SET raw = EXCLUDED.raw, updated_at = EXCLUDED.updated_at
`, raw.DocID, payload, time.Now().UTC())
}

func (r *ResultRepository) GetRawExtraction(ctx context.Context, documentID string) (*domain.RawExtraction, error) {
	payload, err := r.readColumn(ctx, "raw", documentID)
	if err != nil {
		return nil, err
	}
	var raw domain.RawExtraction
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal raw extraction: %w", err)
	}
	return &raw, nil
}

func (r *ResultRepository) SaveResult(ctx context.Context, result domain.KPIResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return r.write(ctx, "postgres.save_result", `
INSERT INTO kpi_results (document_id, result, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (document_id) DO UPDATE SET result = EXCLUDED.result, updated_at = EXCLUDED.updated_at
`, result.DocID, payload, time.Now().UTC())
}

func (r *ResultRepository) GetResult(ctx context.Context, documentID string) (*domain.KPIResult, error) {
	payload, err := r.readColumn(ctx, "result", documentID)
	if err != nil {
		return nil, err
	}
	var result domain.KPIResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// ListResults returns the most recently updated results first.
func (r *ResultRepository) ListResults(ctx context.Context, limit int) ([]domain.KPIResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT result
FROM kpi_results
WHERE result IS NOT NULL
ORDER BY updated_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, wrapPGError("list results", err)
	}
	defer rows.Close()

	out := make([]domain.KPIResult, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.KPIResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func (r *ResultRepository) readColumn(ctx context.Context, column, documentID string) ([]byte, error) {
	// column is one of two constants, never caller input.
	row := r.db.QueryRowContext(ctx, `
SELECT `+column+`
FROM kpi_results
WHERE document_id = $1 AND `+column+` IS NOT NULL
`, documentID)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "get "+column, fmt.Errorf("document_id=%s", documentID))
		}
		return nil, wrapPGError("get "+column, err)
	}
	return payload, nil
}

func (r *ResultRepository) write(ctx context.Context, operation, query string, args ...any) error {
	call := func(ctx context.Context) error {
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return wrapPGError(operation, err)
		}
		return nil
	}
	if r.executor == nil {
		return call(ctx)
	}
	return resilience.AsTemporary(operation, r.executor.Execute(ctx, operation, call, resilience.ClassifyTemporary))
}
