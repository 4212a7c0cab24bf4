package textract

import (
	"context"
	"errors"
	"net"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/resilience"
)

// classifyTransportError feeds the circuit breaker. Retryable is always false
// here: the orchestrator owns the retry budget, the breaker only needs to
// know which failures count against the provider.
func classifyTransportError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}

	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case "ThrottlingException", "ProvisionedThroughputExceededException",
			"InternalServerError", "ServiceUnavailable":
			return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
		default:
			// Rejections of a specific document say nothing about provider
			// health; keep them off the breaker.
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
