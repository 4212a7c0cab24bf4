package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

func TestValidateAcceptsSupportedDocument(t *testing.T) {
	storage := newFakeStorage()
	if err := storage.Save(context.Background(), "docs/a.jpg", bytes.NewReader(make([]byte, 1024))); err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	validator := NewRequestValidator(storage, 0)

	size, err := validator.Validate(context.Background(), domain.ProcessingRequest{
		DocumentID:  "doc-1",
		StoragePath: "docs/a.jpg",
		MimeType:    "image/jpeg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 1024 {
		t.Fatalf("expected resolved size 1024, got %d", size)
	}
}

func TestValidateRejectsInOrder(t *testing.T) {
	storage := newFakeStorage()
	_ = storage.Save(context.Background(), "docs/empty.png", bytes.NewReader(nil))
	_ = storage.Save(context.Background(), "docs/big.png", bytes.NewReader(make([]byte, 200)))
	_ = storage.Save(context.Background(), "docs/word.docx", bytes.NewReader(make([]byte, 50)))

	validator := NewRequestValidator(storage, 100)

	cases := []struct {
		name   string
		path   string
		mime   string
		reason string
	}{
		{"missing file", "docs/missing.png", "image/png", domain.ReasonNotFound},
		{"empty file", "docs/empty.png", "image/png", domain.ReasonEmpty},
		{"over size limit", "docs/big.png", "image/png", domain.ReasonTooLarge},
		{"unsupported mime", "docs/word.docx", "application/msword", domain.ReasonUnsupportedFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(context.Background(), domain.ProcessingRequest{
				DocumentID:  "doc-x",
				StoragePath: tc.path,
				MimeType:    tc.mime,
			})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, domain.ErrInvalidDocument) {
				t.Fatalf("expected ErrInvalidDocument, got %v", err)
			}
			var valErr *domain.ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if valErr.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, valErr.Reason)
			}
		})
	}
}

func TestValidateSizeCheckPrecedesMimeCheck(t *testing.T) {
	storage := newFakeStorage()
	_ = storage.Save(context.Background(), "docs/big.docx", bytes.NewReader(make([]byte, 200)))
	validator := NewRequestValidator(storage, 100)

	_, err := validator.Validate(context.Background(), domain.ProcessingRequest{
		StoragePath: "docs/big.docx",
		MimeType:    "application/msword",
	})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if valErr.Reason != domain.ReasonTooLarge {
		t.Fatalf("size check should run before mime check, got reason %q", valErr.Reason)
	}
}
