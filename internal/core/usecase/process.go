package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
)

type OrchestratorConfig struct {
	CloudEnabled bool
	MaxAttempts  int
	// BackoffStep scales linearly with the attempt number. Linear rather than
	// exponential: with at most a handful of attempts there is nothing to gain
	// from jittered exponential curves.
	BackoffStep time.Duration
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		CloudEnabled: true,
		MaxAttempts:  3,
		BackoffStep:  500 * time.Millisecond,
	}
}

// ProcessingOrchestrator drives one document through
// validate -> budget check -> cloud attempt -> quality gate -> local fallback
// -> bounded retry, and always returns a well-formed outcome. The attempt
// counter lives on the call stack; nothing here is process-global.
type ProcessingOrchestrator struct {
	validator *RequestValidator
	estimator *CostEstimator
	quality   *QualityEvaluator
	budget    *BudgetGuard
	cloud     ports.CloudEngine
	local     ports.LocalEngine
	ledger    ports.UsageLedger
	records   ports.UsageRecordStore
	cfg       OrchestratorConfig
	logger    *slog.Logger
}

func NewProcessingOrchestrator(
	validator *RequestValidator,
	estimator *CostEstimator,
	quality *QualityEvaluator,
	budget *BudgetGuard,
	cloud ports.CloudEngine,
	local ports.LocalEngine,
	ledger ports.UsageLedger,
	records ports.UsageRecordStore,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *ProcessingOrchestrator {
	def := DefaultOrchestratorConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = def.BackoffStep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessingOrchestrator{
		validator: validator,
		estimator: estimator,
		quality:   quality,
		budget:    budget,
		cloud:     cloud,
		local:     local,
		ledger:    ledger,
		records:   records,
		cfg:       cfg,
		logger:    logger,
	}
}

// attemptState threads per-call retry bookkeeping through one Process call.
type attemptState struct {
	req       domain.ProcessingRequest
	pages     int
	estCost   float64
	attempt   int
	lastClass ErrorClass
}

func (o *ProcessingOrchestrator) Process(ctx context.Context, req domain.ProcessingRequest) domain.ProcessingOutcome {
	start := time.Now()

	if len(req.Features) == 0 {
		req.Features = domain.FeaturesForKind(req.Kind)
	}

	size, err := o.validator.Validate(ctx, req)
	if err != nil {
		class := ClassifyError(err)
		o.logger.Info("document_rejected", "document_id", req.DocumentID, "error", err)
		return o.finish(ctx, req, o.failure(class, 0, start))
	}
	req.SizeBytes = size

	estCost, pages, err := o.estimator.Estimate(ctx, req)
	if err != nil {
		// Page resolution failing is not fatal: bill pessimistically as one page.
		o.logger.Warn("cost_estimate_failed", "document_id", req.DocumentID, "error", err)
		estCost, pages = 0, 1
	}

	state := &attemptState{
		req:       req,
		pages:     pages,
		estCost:   estCost,
		lastClass: classOf(CategoryQualityInsufficient, PolicyRetryable),
	}

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		state.attempt = attempt
		if attempt > 1 {
			if err := o.backoff(ctx, attempt); err != nil {
				return o.finish(ctx, req, o.failure(state.lastClass, attempt, start))
			}
		}

		outcome, done := o.runAttempt(ctx, state, start)
		if done {
			return o.finish(ctx, req, outcome)
		}
	}

	return o.finish(ctx, req, o.failure(state.lastClass, o.cfg.MaxAttempts, start))
}

// runAttempt executes one pass through the engine chain. done=false means the
// attempt is eligible for another round of the retry loop.
func (o *ProcessingOrchestrator) runAttempt(ctx context.Context, state *attemptState, start time.Time) (domain.ProcessingOutcome, bool) {
	if o.cloudAllowed(ctx) {
		return o.runCloudFirst(ctx, state, start)
	}
	outcome, accepted, terminal := o.tryLocal(ctx, state, start, domain.EngineUsedLocal)
	if accepted || terminal {
		return outcome, true
	}
	return domain.ProcessingOutcome{}, false
}

func (o *ProcessingOrchestrator) runCloudFirst(ctx context.Context, state *attemptState, start time.Time) (domain.ProcessingOutcome, bool) {
	result, err := o.cloud.Analyze(ctx, state.req)
	if err != nil {
		class := ClassifyError(err)
		state.lastClass = class
		o.logCloudError(state.req, class, err)

		if QuotaExhaustedCode(err) {
			o.suspendCloud(ctx)
		}

		// Every cloud failure gets one local shot in the same attempt: a
		// last resort for terminal errors, a fallback for the rest.
		outcome, accepted, _ := o.tryLocal(ctx, state, start, domain.EngineUsedCloudFallback)
		if accepted {
			return outcome, true
		}
		if class.Policy == PolicyNonRetryable {
			return o.failure(class, state.attempt, start), true
		}
		return domain.ProcessingOutcome{}, false
	}

	verdict := o.quality.Evaluate(result)
	if verdict.Acceptable {
		o.recordUsage(ctx, state, domain.EngineCloud, verdict.AvgConfidence)
		o.checkThresholdsAfterSpend(ctx)
		return o.success(result, domain.EngineUsedCloud, state.attempt, start), true
	}

	o.logger.Info("cloud_quality_rejected",
		"document_id", state.req.DocumentID,
		"attempt", state.attempt,
		"avg_confidence", verdict.AvgConfidence,
		"tier", verdict.Tier,
	)
	state.lastClass = classOf(CategoryQualityInsufficient, PolicyRetryable)

	outcome, accepted, _ := o.tryLocal(ctx, state, start, domain.EngineUsedCloudFallback)
	if accepted {
		return outcome, true
	}
	return domain.ProcessingOutcome{}, false
}

// tryLocal runs the local engine once. accepted means the result passed the
// quality gate and was returned; terminal means the local failure cannot be
// improved by retrying.
func (o *ProcessingOrchestrator) tryLocal(ctx context.Context, state *attemptState, start time.Time, engineUsed string) (domain.ProcessingOutcome, bool, bool) {
	result, err := o.local.Analyze(ctx, state.req)
	if err != nil {
		class := ClassifyError(err)
		state.lastClass = class
		o.logger.Warn("local_engine_failed",
			"document_id", state.req.DocumentID,
			"attempt", state.attempt,
			"category", class.Category,
			"error", err,
		)
		if class.Policy == PolicyNonRetryable {
			return o.failure(class, state.attempt, start), false, true
		}
		return domain.ProcessingOutcome{}, false, false
	}

	verdict := o.quality.Evaluate(result)
	if !verdict.Acceptable {
		o.logger.Info("local_quality_rejected",
			"document_id", state.req.DocumentID,
			"attempt", state.attempt,
			"avg_confidence", verdict.AvgConfidence,
			"tier", verdict.Tier,
		)
		state.lastClass = classOf(CategoryQualityInsufficient, PolicyRetryable)
		return domain.ProcessingOutcome{}, false, false
	}

	o.recordUsage(ctx, state, domain.EngineLocal, verdict.AvgConfidence)
	return o.success(result, engineUsed, state.attempt, start), true, false
}

func (o *ProcessingOrchestrator) cloudAllowed(ctx context.Context) bool {
	if !o.cfg.CloudEnabled {
		return false
	}
	if suspended, err := o.ledger.CloudSuspended(ctx); err != nil {
		o.logger.Warn("suspension_check_failed", "error", err)
	} else if suspended {
		return false
	}
	return o.budget.CanProceed(ctx)
}

func (o *ProcessingOrchestrator) suspendCloud(ctx context.Context) {
	until := endOfDay(time.Now().UTC())
	if err := o.ledger.SuspendCloud(ctx, until); err != nil {
		o.logger.Warn("cloud_suspend_failed", "error", err)
		return
	}
	o.logger.Error("cloud_engine_suspended", "until", until)
}

func (o *ProcessingOrchestrator) recordUsage(ctx context.Context, state *attemptState, engine domain.EngineID, confidence float64) {
	cost := state.estCost
	if engine == domain.EngineLocal {
		cost = 0
	}
	if err := o.ledger.Record(ctx, engine, state.pages, cost); err != nil {
		o.logger.Warn("usage_record_failed", "engine", engine, "error", err)
	}
	rec := domain.UsageRecord{
		ID:            uuid.NewString(),
		Engine:        engine,
		DocumentID:    state.req.DocumentID,
		Timestamp:     time.Now().UTC(),
		Pages:         state.pages,
		EstimatedCost: cost,
		ActualCost:    cost,
		Confidence:    confidence,
	}
	if err := o.records.Append(ctx, rec); err != nil {
		o.logger.Warn("usage_append_failed", "engine", engine, "error", err)
	}
}

func (o *ProcessingOrchestrator) checkThresholdsAfterSpend(ctx context.Context) {
	daily, err := o.ledger.DailyTotal(ctx, ports.EngineAll)
	if err != nil {
		o.logger.Warn("threshold_read_failed", "period", domain.PeriodDaily, "error", err)
		return
	}
	monthly, err := o.ledger.MonthlyTotal(ctx, ports.EngineAll)
	if err != nil {
		o.logger.Warn("threshold_read_failed", "period", domain.PeriodMonthly, "error", err)
		return
	}
	o.budget.CheckThresholds(ctx, daily, monthly)
}

func (o *ProcessingOrchestrator) backoff(ctx context.Context, attempt int) error {
	wait := time.Duration(attempt-1) * o.cfg.BackoffStep
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *ProcessingOrchestrator) success(result *domain.EngineResult, engineUsed string, attempts int, start time.Time) domain.ProcessingOutcome {
	return domain.ProcessingOutcome{
		Success:        true,
		Text:           result.Text,
		Confidence:     result.AvgConfidence,
		Forms:          result.Forms,
		Tables:         result.Tables,
		EngineUsed:     engineUsed,
		Attempts:       attempts,
		ProcessingTime: time.Since(start),
	}
}

func (o *ProcessingOrchestrator) failure(class ErrorClass, attempts int, start time.Time) domain.ProcessingOutcome {
	return domain.ProcessingOutcome{
		Success:        false,
		EngineUsed:     domain.EngineUsedNone,
		Attempts:       attempts,
		ProcessingTime: time.Since(start),
		ErrorCategory:  class.Category,
	}
}

// finish persists the outcome for the audit trail; the caller still gets the
// outcome when persistence misbehaves.
func (o *ProcessingOrchestrator) finish(ctx context.Context, req domain.ProcessingRequest, outcome domain.ProcessingOutcome) domain.ProcessingOutcome {
	if err := o.records.SaveOutcome(ctx, req.DocumentID, outcome); err != nil {
		o.logger.Warn("outcome_save_failed", "document_id", req.DocumentID, "error", err)
	}
	return outcome
}

func (o *ProcessingOrchestrator) logCloudError(req domain.ProcessingRequest, class ErrorClass, err error) {
	if class.Category == CategoryAuthOrConfig {
		// Needs human attention; provider detail stays in logs only.
		o.logger.Error("cloud_engine_auth_error", "document_id", req.DocumentID, "error", err)
		return
	}
	o.logger.Warn("cloud_engine_failed",
		"document_id", req.DocumentID,
		"category", class.Category,
		"policy", class.Policy,
		"error", err,
	)
}

func endOfDay(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 23, 59, 59, 0, now.Location())
}
