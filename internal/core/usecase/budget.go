package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
)

type BudgetLimits struct {
	DailyLimit     float64
	MonthlyLimit   float64
	AlertThreshold float64 // fraction of the limit that triggers a warning
}

func DefaultBudgetLimits() BudgetLimits {
	return BudgetLimits{
		DailyLimit:     1000,
		MonthlyLimit:   10000,
		AlertThreshold: 0.80,
	}
}

const criticalThreshold = 0.95

// BudgetGuard admits or refuses cloud-engine work based on rolling usage
// totals, and raises threshold alerts as periods fill up.
//
// Admission is a soft limit: the read-then-compare here and the later usage
// increment are not atomic as a pair, so concurrent requests can both pass
// before either records usage. Bounded overshoot is accepted; a hard limit
// would need a reserve-then-commit counter in the ledger.
type BudgetGuard struct {
	ledger ports.UsageLedger
	alerts ports.AlertSink
	limits BudgetLimits
	logger *slog.Logger
}

func NewBudgetGuard(ledger ports.UsageLedger, alerts ports.AlertSink, limits BudgetLimits, logger *slog.Logger) *BudgetGuard {
	def := DefaultBudgetLimits()
	if limits.DailyLimit <= 0 {
		limits.DailyLimit = def.DailyLimit
	}
	if limits.MonthlyLimit <= 0 {
		limits.MonthlyLimit = def.MonthlyLimit
	}
	if limits.AlertThreshold <= 0 || limits.AlertThreshold >= 1 {
		limits.AlertThreshold = def.AlertThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BudgetGuard{ledger: ledger, alerts: alerts, limits: limits, logger: logger}
}

// CanProceed reports whether a new cloud request may start. Ledger read
// failures admit the request: a counter-store blip should degrade cost
// governance, not document processing.
func (g *BudgetGuard) CanProceed(ctx context.Context) bool {
	daily, err := g.ledger.DailyTotal(ctx, ports.EngineAll)
	if err != nil {
		g.logger.Warn("budget_read_failed", "period", domain.PeriodDaily, "error", err)
		return true
	}
	monthly, err := g.ledger.MonthlyTotal(ctx, ports.EngineAll)
	if err != nil {
		g.logger.Warn("budget_read_failed", "period", domain.PeriodMonthly, "error", err)
		return true
	}
	return daily < g.limits.DailyLimit && monthly < g.limits.MonthlyLimit
}

// CheckThresholds compares current totals against alert and critical levels
// and emits at most one alert per period/severity crossing. The once-only
// property is best effort; a lost latch write can duplicate an alert.
func (g *BudgetGuard) CheckThresholds(ctx context.Context, dailyTotal, monthlyTotal float64) {
	g.checkPeriod(ctx, domain.PeriodDaily, dailyTotal, g.limits.DailyLimit)
	g.checkPeriod(ctx, domain.PeriodMonthly, monthlyTotal, g.limits.MonthlyLimit)
}

func (g *BudgetGuard) checkPeriod(ctx context.Context, period domain.BudgetPeriodKind, usage, limit float64) {
	if limit <= 0 {
		return
	}
	percentage := usage / limit * 100

	var severity domain.AlertSeverity
	switch {
	case usage >= limit*criticalThreshold:
		severity = domain.SeverityCritical
	case usage >= limit*g.limits.AlertThreshold:
		severity = domain.SeverityWarning
	default:
		return
	}

	won, err := g.ledger.MarkAlerted(ctx, period, severity)
	if err != nil {
		g.logger.Warn("alert_latch_failed", "period", period, "severity", severity, "error", err)
		// Emit anyway; duplicates beat silence.
	} else if !won {
		return
	}

	alert := domain.BudgetAlert{
		Type:       "ocr_budget_threshold",
		Severity:   severity,
		Period:     period,
		Usage:      usage,
		Limit:      limit,
		Percentage: percentage,
		Message:    fmt.Sprintf("OCR %s budget at %.1f%% (%.2f of %.2f)", period, percentage, usage, limit),
	}
	if err := g.alerts.Emit(ctx, alert); err != nil {
		g.logger.Warn("alert_emit_failed", "period", period, "severity", severity, "error", err)
	}
}
