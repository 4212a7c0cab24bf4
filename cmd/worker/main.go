package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/bootstrap"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/config"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("ocr-worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Metrics.Handler(),
	}
	go func() {
		logger.Info("metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	err = app.Queue.SubscribeDocumentScanned(ctx, func(ctx context.Context, event ports.ScanEvent) error {
		app.Metrics.StartDocument()
		outcome := app.Processor.Process(ctx, domain.ProcessingRequest{
			DocumentID:  event.DocumentID,
			StoragePath: event.StoragePath,
			MimeType:    event.MimeType,
			Kind:        event.Kind,
		})
		app.Metrics.FinishDocument("ocr-worker", outcome)

		if !outcome.Success {
			logger.Warn("document processing failed",
				"document_id", event.DocumentID,
				"category", outcome.ErrorCategory,
				"attempts", outcome.Attempts)
			return nil
		}
		logger.Info("document processed",
			"document_id", event.DocumentID,
			"engine", outcome.EngineUsed,
			"confidence", outcome.Confidence,
			"attempts", outcome.Attempts)
		return nil
	})
	if err != nil {
		logger.Error("subscribe failed", "error", err)
		os.Exit(1)
	}

	logger.Info("worker started", "subject", cfg.NATSScanSubject)
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
