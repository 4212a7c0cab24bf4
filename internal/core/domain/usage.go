package domain

import "time"

// UsageRecord is an append-only accounting entry for one accepted engine
// result. Costs are monetary; the local engine records zero cost.
type UsageRecord struct {
	ID            string    `json:"id"`
	Engine        EngineID  `json:"engine"`
	DocumentID    string    `json:"document_id"`
	Timestamp     time.Time `json:"timestamp"`
	Pages         int       `json:"pages"`
	EstimatedCost float64   `json:"estimated_cost"`
	ActualCost    float64   `json:"actual_cost"`
	Confidence    float64   `json:"confidence,omitempty"`
}

type BudgetPeriodKind string

const (
	PeriodDaily   BudgetPeriodKind = "daily"
	PeriodMonthly BudgetPeriodKind = "monthly"
)

// BudgetPeriod is a snapshot of one accounting window. Counters roll over by
// key expiration; stale keys simply stop being read.
type BudgetPeriod struct {
	Kind           BudgetPeriodKind `json:"kind"`
	Key            string           `json:"key"`
	Cost           float64          `json:"cost"`
	Limit          float64          `json:"limit"`
	AlertThreshold float64          `json:"alert_threshold"`
}

type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// BudgetAlert is the structured payload emitted to the alert sink when a
// period approaches its limit. Delivery is fire-and-forget.
type BudgetAlert struct {
	Type       string           `json:"type"`
	Severity   AlertSeverity    `json:"severity"`
	Period     BudgetPeriodKind `json:"period"`
	Usage      float64          `json:"usage"`
	Limit      float64          `json:"limit"`
	Percentage float64          `json:"percentage"`
	Message    string           `json:"message"`
}
