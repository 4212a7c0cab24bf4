package usecase

import (
	"context"
	"fmt"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
)

const DefaultMaxDocumentBytes = 50 * 1024 * 1024

// AllowedMimeTypes is the closed set of formats the cloud engine accepts,
// plus PDF. Anything else is rejected before an engine is invoked.
var AllowedMimeTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/tiff":      {},
	"application/pdf": {},
}

// RequestValidator verifies a document is processable before any engine call.
// Checks run in order: existence, size bounds, format allow-list.
type RequestValidator struct {
	storage  ports.ObjectStorage
	maxBytes int64
}

func NewRequestValidator(storage ports.ObjectStorage, maxBytes int64) *RequestValidator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	return &RequestValidator{storage: storage, maxBytes: maxBytes}
}

// Validate returns the resolved byte size on success. Failures are
// ValidationErrors carrying a specific reason so the orchestrator can
// short-circuit with zero attempts.
func (v *RequestValidator) Validate(ctx context.Context, req domain.ProcessingRequest) (int64, error) {
	size, err := v.storage.Stat(ctx, req.StoragePath)
	if err != nil {
		return 0, &domain.ValidationError{
			Reason: domain.ReasonNotFound,
			Cause:  fmt.Errorf("stat %s: %w", req.StoragePath, err),
		}
	}
	if size == 0 {
		return 0, &domain.ValidationError{
			Reason: domain.ReasonEmpty,
			Cause:  fmt.Errorf("document %s is empty", req.DocumentID),
		}
	}
	if size > v.maxBytes {
		return 0, &domain.ValidationError{
			Reason: domain.ReasonTooLarge,
			Cause:  fmt.Errorf("document %s is %d bytes, max %d", req.DocumentID, size, v.maxBytes),
		}
	}
	if _, ok := AllowedMimeTypes[req.MimeType]; !ok {
		return 0, &domain.ValidationError{
			Reason: domain.ReasonUnsupportedFormat,
			Cause:  fmt.Errorf("mime type %q is not supported", req.MimeType),
		}
	}
	return size, nil
}
