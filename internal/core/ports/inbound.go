package ports

import (
	"context"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

// DocumentProcessor runs one document through the full OCR pipeline. The
// outcome is always well formed; failures are data, never panics or raw
// provider errors.
type DocumentProcessor interface {
	Process(ctx context.Context, req domain.ProcessingRequest) domain.ProcessingOutcome
}
