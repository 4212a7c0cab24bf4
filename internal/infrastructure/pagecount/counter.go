package pagecount

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
)

// DefaultAvgPageBytes approximates one scanned PDF page for the size
// heuristic used when the PDF metadata cannot be read.
const DefaultAvgPageBytes = 100 * 1024

// Counter resolves billable page counts: 1 for raster images, the PDF page
// count for PDFs, falling back to a size heuristic on unreadable metadata.
type Counter struct {
	storage      ports.ObjectStorage
	avgPageBytes int64
}

func New(storage ports.ObjectStorage, avgPageBytes int64) *Counter {
	if avgPageBytes <= 0 {
		avgPageBytes = DefaultAvgPageBytes
	}
	return &Counter{storage: storage, avgPageBytes: avgPageBytes}
}

func (c *Counter) CountPages(ctx context.Context, req domain.ProcessingRequest) (int, error) {
	if req.MimeType != "application/pdf" {
		return 1, nil
	}

	reader, err := c.storage.Open(ctx, req.StoragePath)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}

	if pages, err := pdfPageCount(raw); err == nil {
		return pages, nil
	}
	return EstimatePagesBySize(int64(len(raw)), c.avgPageBytes), nil
}

func pdfPageCount(raw []byte) (pages int, err error) {
	// The pdf package panics on some malformed files; treat that as a parse
	// failure and let the size heuristic take over.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	pages = doc.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("pdf reports %d pages", pages)
	}
	return pages, nil
}

// EstimatePagesBySize is the named fallback approximation: file size divided
// by an average page size, never below one page.
func EstimatePagesBySize(sizeBytes, avgPageBytes int64) int {
	if avgPageBytes <= 0 {
		avgPageBytes = DefaultAvgPageBytes
	}
	pages := int(sizeBytes / avgPageBytes)
	if sizeBytes%avgPageBytes != 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}
