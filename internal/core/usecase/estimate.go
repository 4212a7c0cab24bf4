package usecase

import (
	"context"
	"fmt"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
)

const DefaultServiceFeeMultiplier = 1.1

// PriceTable maps each feature to its cloud price per page in USD.
type PriceTable map[domain.Feature]float64

func DefaultPriceTable() PriceTable {
	return PriceTable{
		domain.FeatureTextDetection:      0.0015,
		domain.FeatureFormExtraction:     0.05,
		domain.FeatureTableExtraction:    0.015,
		domain.FeatureSignatureDetection: 0.035,
	}
}

// CostEstimator computes the approximate cloud cost of a request:
// pages x sum of per-feature page prices, times a fixed service fee.
// Deterministic apart from resolving the page count.
type CostEstimator struct {
	pages      ports.PageCounter
	prices     PriceTable
	serviceFee float64
}

func NewCostEstimator(pages ports.PageCounter, prices PriceTable, serviceFee float64) *CostEstimator {
	if len(prices) == 0 {
		prices = DefaultPriceTable()
	}
	if serviceFee <= 0 {
		serviceFee = DefaultServiceFeeMultiplier
	}
	return &CostEstimator{pages: pages, prices: prices, serviceFee: serviceFee}
}

// Estimate returns the estimated cost and resolved page count.
func (e *CostEstimator) Estimate(ctx context.Context, req domain.ProcessingRequest) (float64, int, error) {
	pages, err := e.pages.CountPages(ctx, req)
	if err != nil {
		return 0, 0, fmt.Errorf("count pages: %w", err)
	}
	if pages < 1 {
		pages = 1
	}

	var perPage float64
	for _, feature := range req.Features {
		perPage += e.prices[feature]
	}
	cost := float64(pages) * perPage * e.serviceFee
	return cost, pages, nil
}
