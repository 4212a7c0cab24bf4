package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

// UsageRepository persists the append-only usage audit trail and final
// processing outcomes. The fast rolling counters live in the ledger; this
// table is the durable record.
type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *UsageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ocr_usage_records (
	id TEXT PRIMARY KEY,
	engine TEXT NOT NULL,
	document_id TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	pages INTEGER NOT NULL,
	estimated_cost DOUBLE PRECISION NOT NULL,
	actual_cost DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ocr_usage_recorded_at ON ocr_usage_records(recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_ocr_usage_engine ON ocr_usage_records(engine);

CREATE TABLE IF NOT EXISTS ocr_outcomes (
	document_id TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	engine_used TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	processing_time_ms BIGINT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_category TEXT,
	extracted JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ocr_outcomes_document ON ocr_outcomes(document_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *UsageRepository) Append(ctx context.Context, rec domain.UsageRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ocr_usage_records (
	id, engine, document_id, recorded_at, pages, estimated_cost, actual_cost, confidence
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		rec.ID, string(rec.Engine), rec.DocumentID, rec.Timestamp, rec.Pages,
		rec.EstimatedCost, rec.ActualCost, rec.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// extractedPayload is the JSON envelope stored with an outcome.
type extractedPayload struct {
	Text   string             `json:"text,omitempty"`
	Forms  []domain.FormField `json:"forms,omitempty"`
	Tables []domain.Table     `json:"tables,omitempty"`
}

func (r *UsageRepository) SaveOutcome(ctx context.Context, documentID string, outcome domain.ProcessingOutcome) error {
	extracted, err := json.Marshal(extractedPayload{
		Text:   outcome.Text,
		Forms:  outcome.Forms,
		Tables: outcome.Tables,
	})
	if err != nil {
		return fmt.Errorf("marshal extracted payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO ocr_outcomes (
	document_id, success, engine_used, attempts, processing_time_ms, confidence, error_category, extracted, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		documentID, outcome.Success, outcome.EngineUsed, outcome.Attempts,
		outcome.ProcessingTime.Milliseconds(), outcome.Confidence, outcome.ErrorCategory,
		extracted, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}
