package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDocument = errors.New("invalid document")
	ErrBudgetExceeded  = errors.New("budget exceeded")
	ErrTemporary       = errors.New("temporary failure")
)

// Validation failure reasons carried inside ErrInvalidDocument wraps.
const (
	ReasonNotFound          = "not-found"
	ReasonEmpty             = "empty"
	ReasonTooLarge          = "too-large"
	ReasonUnsupportedFormat = "unsupported-format"
)

// ValidationError reports why a document failed pre-engine validation. It
// matches ErrInvalidDocument under errors.Is.
type ValidationError struct {
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "invalid document"
	}
	if e.Cause != nil {
		return fmt.Sprintf("invalid document (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid document (%s)", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidDocument }

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ProviderError is raised by an engine adapter when the provider rejects or
// fails a request. Code is the provider's machine-readable error code; the
// message is for logs only and never surfaces to end users.
type ProviderError struct {
	Engine  EngineID
	Code    string
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s provider error %s: %s: %v", e.Engine, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s provider error %s: %s", e.Engine, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }
