package usecase

import (
	"context"
	"errors"
	"net"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

type RetryPolicy string

const (
	// PolicyNonRetryable ends the attempt chain after one last-resort local try.
	PolicyNonRetryable RetryPolicy = "non_retryable"
	// PolicyFallbackOnly skips straight to the other engine without retrying
	// the failing one.
	PolicyFallbackOnly RetryPolicy = "fallback_only"
	// PolicyRetryable is eligible for backoff retry up to the attempt bound.
	PolicyRetryable RetryPolicy = "retryable"
)

// Error categories surfaced to callers. Raw provider text never leaves logs.
const (
	CategoryInvalidDocument     = "invalid_document"
	CategoryUnsupportedFormat   = "provider_unsupported_format"
	CategoryThrottled           = "provider_throttled"
	CategoryTransient           = "provider_transient"
	CategoryAuthOrConfig        = "provider_auth_or_config"
	CategoryBudgetExceeded      = "budget_exceeded"
	CategoryQualityInsufficient = "quality_insufficient"
	CategoryEngineFailure       = "engine_failure"
)

// ErrorClass pairs a sanitized user-facing category with a retry policy.
type ErrorClass struct {
	Category string
	Policy   RetryPolicy
	Message  string
}

var userMessages = map[string]string{
	CategoryInvalidDocument:     "The document could not be processed. Check that the file exists, is not empty, and uses a supported format.",
	CategoryUnsupportedFormat:   "The OCR provider does not support this document format.",
	CategoryThrottled:           "The OCR service is busy. The request was retried and can be submitted again later.",
	CategoryTransient:           "A temporary OCR service error occurred. Please try again.",
	CategoryAuthOrConfig:        "The OCR service is misconfigured. The issue has been reported to operators.",
	CategoryBudgetExceeded:      "The OCR budget for this period is exhausted.",
	CategoryQualityInsufficient: "Text could not be extracted with sufficient confidence.",
	CategoryEngineFailure:       "OCR processing failed.",
}

// UserMessage returns the fixed template for a category.
func UserMessage(category string) string {
	if msg, ok := userMessages[category]; ok {
		return msg
	}
	return userMessages[CategoryEngineFailure]
}

// Provider error codes grouped by handling. Codes follow the cloud provider's
// published taxonomy.
var (
	throttledCodes = map[string]struct{}{
		"ThrottlingException":                    {},
		"ProvisionedThroughputExceededException": {},
		"LimitExceededException":                 {},
	}
	unsupportedCodes = map[string]struct{}{
		"UnsupportedDocumentException": {},
		"InvalidImageFormatException":  {},
		"BadDocumentException":         {},
	}
	terminalCodes = map[string]struct{}{
		"DocumentTooLargeException": {},
		"InvalidS3ObjectException":  {},
	}
	authCodes = map[string]struct{}{
		"AccessDeniedException":       {},
		"UnrecognizedClientException": {},
		"ExpiredTokenException":       {},
		"InvalidSignatureException":   {},
	}
	transientCodes = map[string]struct{}{
		"InternalServerError": {},
		"ServiceUnavailable":  {},
	}
)

// ClassifyError maps any pipeline failure to a category and retry policy.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClass{}
	}

	if errors.Is(err, domain.ErrInvalidDocument) {
		return classOf(CategoryInvalidDocument, PolicyNonRetryable)
	}
	if errors.Is(err, domain.ErrBudgetExceeded) {
		// Terminal for the cloud path only; the local engine is free.
		return classOf(CategoryBudgetExceeded, PolicyFallbackOnly)
	}
	if errors.Is(err, context.Canceled) {
		return classOf(CategoryEngineFailure, PolicyNonRetryable)
	}
	// Transport deadlines are enforced per call and treated as transient.
	if errors.Is(err, context.DeadlineExceeded) {
		return classOf(CategoryTransient, PolicyRetryable)
	}

	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		return classifyProviderCode(provErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return classOf(CategoryTransient, PolicyRetryable)
	}
	if errors.Is(err, domain.ErrTemporary) {
		return classOf(CategoryTransient, PolicyRetryable)
	}

	return classOf(CategoryEngineFailure, PolicyNonRetryable)
}

func classifyProviderCode(code string) ErrorClass {
	switch {
	case inSet(throttledCodes, code):
		return classOf(CategoryThrottled, PolicyRetryable)
	case inSet(unsupportedCodes, code):
		return classOf(CategoryUnsupportedFormat, PolicyFallbackOnly)
	case inSet(terminalCodes, code):
		return classOf(CategoryInvalidDocument, PolicyNonRetryable)
	case inSet(authCodes, code):
		// Terminal for that engine; operators get the log line.
		return classOf(CategoryAuthOrConfig, PolicyFallbackOnly)
	case inSet(transientCodes, code):
		return classOf(CategoryTransient, PolicyRetryable)
	default:
		return classOf(CategoryTransient, PolicyRetryable)
	}
}

// QuotaExhaustedCode reports whether the provider error signals account-level
// quota exhaustion that should suspend the cloud path for the rest of the day.
func QuotaExhaustedCode(err error) bool {
	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	return provErr.Code == "LimitExceededException" || provErr.Code == "ProvisionedThroughputExceededException"
}

func classOf(category string, policy RetryPolicy) ErrorClass {
	return ErrorClass{Category: category, Policy: policy, Message: UserMessage(category)}
}

func inSet(set map[string]struct{}, code string) bool {
	_, ok := set[code]
	return ok
}
