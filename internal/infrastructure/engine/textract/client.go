// Package textract adapts the paid cloud OCR provider. The provider returns
// a block graph (pages, lines, key/value sets, tables, signatures) that is
// normalized here into the canonical engine result shape.
package textract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/resilience"
)

type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// RequestsPerSecond throttles calls to the provider; zero disables the
	// limiter.
	RequestsPerSecond  float64
	ResilienceExecutor *resilience.Executor
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *Client {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = connectTimeout

	var limiter *rate.Limiter
	if options.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		limiter:  limiter,
		executor: options.ResilienceExecutor,
	}
}

type analyzeRequest struct {
	Document documentRef `json:"document"`
	Features []string    `json:"feature_types"`
}

type documentRef struct {
	// StoragePath points at the pre-staged object under the documents prefix;
	// document bytes never travel through this service.
	StoragePath string `json:"storage_path"`
}

type analyzeResponse struct {
	Blocks []block `json:"Blocks"`
}

// Analyze submits the staged document and normalizes the provider's block
// graph. Transport and service failures come back as ProviderErrors for the
// orchestrator's classifier; provider text never reaches end users.
func (c *Client) Analyze(ctx context.Context, req domain.ProcessingRequest) (*domain.EngineResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	payload := analyzeRequest{
		Document: documentRef{StoragePath: req.StoragePath},
		Features: featureTypes(req.Features),
	}

	var response analyzeResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/analyze-document", payload, &response)
	}

	var err error
	if c.executor != nil {
		// The breaker shields the provider during sustained failure; retry
		// counting stays with the orchestrator.
		err = c.executor.Execute(ctx, "textract.analyze", call, classifyTransportError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	result := normalizeBlocks(response.Blocks)
	result.Engine = domain.EngineCloud
	return result, nil
}

func featureTypes(features []domain.Feature) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		switch f {
		case domain.FeatureFormExtraction:
			out = append(out, "FORMS")
		case domain.FeatureTableExtraction:
			out = append(out, "TABLES")
		case domain.FeatureSignatureDetection:
			out = append(out, "SIGNATURES")
		}
	}
	// Text detection is implicit; the provider always returns LINE blocks.
	return out
}
