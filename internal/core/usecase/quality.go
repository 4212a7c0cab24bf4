package usecase

import (
	"strings"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

// QualityThresholds use the cloud engine's 0-100 confidence scale.
type QualityThresholds struct {
	MinConfidence     float64
	FallbackThreshold float64
	RetryThreshold    float64
	MinTextLength     int
}

func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinConfidence:     70,
		FallbackThreshold: 50,
		RetryThreshold:    30,
		MinTextLength:     10,
	}
}

// QualityEvaluator decides whether an engine result is acceptable, needs
// fallback to the other engine, or needs a full retry. The three checks are
// independent: a result can be unacceptable without needing retry.
type QualityEvaluator struct {
	thresholds QualityThresholds
}

func NewQualityEvaluator(thresholds QualityThresholds) *QualityEvaluator {
	def := DefaultQualityThresholds()
	if thresholds.MinConfidence <= 0 {
		thresholds.MinConfidence = def.MinConfidence
	}
	if thresholds.FallbackThreshold <= 0 {
		thresholds.FallbackThreshold = def.FallbackThreshold
	}
	if thresholds.RetryThreshold <= 0 {
		thresholds.RetryThreshold = def.RetryThreshold
	}
	if thresholds.MinTextLength <= 0 {
		thresholds.MinTextLength = def.MinTextLength
	}
	return &QualityEvaluator{thresholds: thresholds}
}

func (e *QualityEvaluator) Evaluate(result *domain.EngineResult) domain.QualityVerdict {
	avg, minConf := summarizeConfidence(result)
	textLen := len(strings.TrimSpace(result.Text))

	verdict := domain.QualityVerdict{
		AvgConfidence: avg,
		MinConfidence: minConf,
		TextLength:    textLen,
		Acceptable:    avg >= e.thresholds.MinConfidence && textLen >= e.thresholds.MinTextLength,
		NeedsFallback: avg < e.thresholds.FallbackThreshold,
		NeedsRetry:    avg < e.thresholds.RetryThreshold,
		Tier:          tierFor(avg),
	}
	return verdict
}

func summarizeConfidence(result *domain.EngineResult) (avg, minConf float64) {
	scores := result.LineConfidences
	if len(scores) == 0 {
		return 0, 0
	}
	minConf = scores[0]
	var sum float64
	for _, s := range scores {
		sum += s
		if s < minConf {
			minConf = s
		}
	}
	return sum / float64(len(scores)), minConf
}

func tierFor(avg float64) domain.QualityTier {
	switch {
	case avg >= 90:
		return domain.TierExcellent
	case avg >= 80:
		return domain.TierGood
	case avg >= 70:
		return domain.TierAcceptable
	case avg >= 50:
		return domain.TierPoor
	default:
		return domain.TierUnacceptable
	}
}
