package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/config"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/usecase"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/engine/tesseract"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/engine/textract"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/ledger/redisledger"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/pagecount"
	natsqueue "github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/queue/nats"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/repository/postgres"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/resilience"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/storage/localfs"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/observability/metrics"
)

const serviceName = "ocr-worker"

type App struct {
	Config    config.Config
	Queue     *natsqueue.Queue
	Processor ports.DocumentProcessor
	Metrics   *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	usageRepo := postgres.NewUsageRepository(db)
	if err := usageRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	redisClient, err := redisledger.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}
	ledger := redisledger.New(redisClient)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init document storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSScanSubject, cfg.NATSAlertSubject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	cloud := textract.New(cfg.CloudBaseURL, cfg.CloudAPIKey, textract.Options{
		ConnectTimeout:     time.Duration(cfg.CloudConnectTimeoutMS) * time.Millisecond,
		RequestTimeout:     time.Duration(cfg.CloudRequestTimeoutMS) * time.Millisecond,
		RequestsPerSecond:  cfg.CloudRequestsPerSecond,
		ResilienceExecutor: resilience.NewExecutor(resilience.TransportOnlyConfig()),
	})
	local := tesseract.New(storage, splitLanguages(cfg.TesseractLanguages))

	prices, err := loadPrices(cfg.PricingFile)
	if err != nil {
		return nil, err
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)

	validator := usecase.NewRequestValidator(storage, int64(cfg.MaxDocumentMB)*1024*1024)
	pages := pagecount.New(storage, int64(cfg.AvgPDFPageKB)*1024)
	estimator := usecase.NewCostEstimator(pages, prices, cfg.ServiceFeeMultiplier)
	quality := usecase.NewQualityEvaluator(usecase.QualityThresholds{
		MinConfidence:     cfg.MinConfidence,
		FallbackThreshold: cfg.FallbackThreshold,
		RetryThreshold:    cfg.RetryThreshold,
		MinTextLength:     cfg.MinTextLength,
	})
	budget := usecase.NewBudgetGuard(ledger, queue, usecase.BudgetLimits{
		DailyLimit:     cfg.DailyBudget,
		MonthlyLimit:   cfg.MonthlyBudget,
		AlertThreshold: cfg.AlertThreshold,
	}, logger)

	records := &instrumentedUsageStore{
		next:    usageRepo,
		metrics: workerMetrics,
	}

	processor := usecase.NewProcessingOrchestrator(
		validator, estimator, quality, budget,
		cloud, local, ledger, records,
		usecase.OrchestratorConfig{
			CloudEnabled: cfg.CloudEnabled,
			MaxAttempts:  cfg.MaxAttempts,
			BackoffStep:  time.Duration(cfg.BackoffStepMS) * time.Millisecond,
		},
		logger,
	)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Processor: processor,
		Metrics:   workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = redisClient.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func loadPrices(path string) (usecase.PriceTable, error) {
	raw, err := config.LoadPriceTable(path)
	if err != nil {
		return nil, fmt.Errorf("load price table: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	prices := make(usecase.PriceTable, len(raw))
	for feature, price := range raw {
		prices[domain.Feature(feature)] = price
	}
	return prices, nil
}

func splitLanguages(raw string) []string {
	var langs []string
	for _, lang := range strings.Split(raw, ",") {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	return langs
}

// instrumentedUsageStore mirrors usage writes into the spend metrics.
type instrumentedUsageStore struct {
	next    ports.UsageRecordStore
	metrics *metrics.WorkerMetrics
}

func (s *instrumentedUsageStore) Append(ctx context.Context, rec domain.UsageRecord) error {
	s.metrics.ObserveUsage(serviceName, rec.Engine, rec.Pages, rec.EstimatedCost)
	return s.next.Append(ctx, rec)
}

func (s *instrumentedUsageStore) SaveOutcome(ctx context.Context, documentID string, outcome domain.ProcessingOutcome) error {
	return s.next.SaveOutcome(ctx, documentID, outcome)
}
