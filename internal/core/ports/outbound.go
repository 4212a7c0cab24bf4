package ports

import (
	"context"
	"io"
	"time"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

// EngineAll requests aggregate totals across every known engine.
const EngineAll = "all"

// CloudEngine invokes the paid remote OCR provider and normalizes its block
// graph into the canonical result shape.
type CloudEngine interface {
	Analyze(ctx context.Context, req domain.ProcessingRequest) (*domain.EngineResult, error)
}

// LocalEngine invokes the free on-host OCR engine, including image
// pre-processing and heuristic field extraction.
type LocalEngine interface {
	Analyze(ctx context.Context, req domain.ProcessingRequest) (*domain.EngineResult, error)
}

// ObjectStorage stores and serves source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (int64, error)
}

// PageCounter resolves the billable page count of a document.
type PageCounter interface {
	CountPages(ctx context.Context, req domain.ProcessingRequest) (int, error)
}

// UsageLedger tracks rolling daily/monthly usage in a shared counter store.
// Totals are approximate and eventually consistent; increments are atomic.
type UsageLedger interface {
	Record(ctx context.Context, engine domain.EngineID, pages int, cost float64) error
	DailyTotal(ctx context.Context, engine string) (float64, error)
	MonthlyTotal(ctx context.Context, engine string) (float64, error)
	SuspendCloud(ctx context.Context, until time.Time) error
	CloudSuspended(ctx context.Context) (bool, error)
	// MarkAlerted latches one alert per period/severity crossing. Best effort:
	// true means this caller won the latch and should emit.
	MarkAlerted(ctx context.Context, period domain.BudgetPeriodKind, severity domain.AlertSeverity) (bool, error)
}

// UsageRecordStore persists the append-only usage audit trail.
type UsageRecordStore interface {
	Append(ctx context.Context, rec domain.UsageRecord) error
	SaveOutcome(ctx context.Context, documentID string, outcome domain.ProcessingOutcome) error
}

// AlertSink receives budget alerts. Delivery is fire-and-forget; failures are
// logged by callers and never propagated.
type AlertSink interface {
	Emit(ctx context.Context, alert domain.BudgetAlert) error
}

// ScanEvent is the queue payload announcing a document ready for OCR.
type ScanEvent struct {
	DocumentID  string              `json:"document_id"`
	StoragePath string              `json:"storage_path"`
	MimeType    string              `json:"mime_type"`
	Kind        domain.DocumentKind `json:"kind"`
}

// MessageQueue publishes/consumes document-scanned events.
type MessageQueue interface {
	PublishDocumentScanned(ctx context.Context, event ScanEvent) error
	SubscribeDocumentScanned(ctx context.Context, handler func(context.Context, ScanEvent) error) error
}
