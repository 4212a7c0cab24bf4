package domain

import "time"

type EngineID string

const (
	EngineCloud EngineID = "cloud"
	EngineLocal EngineID = "local"
)

// EngineUsed labels for the accepted result in an outcome.
const (
	EngineUsedCloud         = "cloud"
	EngineUsedLocal         = "local"
	EngineUsedCloudFallback = "cloud_fallback"
	EngineUsedNone          = "none"
)

type DocumentKind string

const (
	KindIDCard        DocumentKind = "id_card"
	KindForm          DocumentKind = "form"
	KindMedicalReport DocumentKind = "medical_report"
	KindGeneric       DocumentKind = "generic"
)

type Feature string

const (
	FeatureTextDetection      Feature = "text_detection"
	FeatureFormExtraction     Feature = "form_extraction"
	FeatureTableExtraction    Feature = "table_extraction"
	FeatureSignatureDetection Feature = "signature_detection"
)

// FeaturesForKind maps each document kind to the fixed feature set requested
// from the cloud engine. Unknown kinds get plain text detection.
func FeaturesForKind(kind DocumentKind) []Feature {
	features, ok := kindFeatures[kind]
	if !ok {
		return []Feature{FeatureTextDetection}
	}
	out := make([]Feature, len(features))
	copy(out, features)
	return out
}

var kindFeatures = map[DocumentKind][]Feature{
	KindIDCard:        {FeatureTextDetection, FeatureFormExtraction, FeatureSignatureDetection},
	KindForm:          {FeatureTextDetection, FeatureFormExtraction, FeatureTableExtraction},
	KindMedicalReport: {FeatureTextDetection, FeatureFormExtraction, FeatureTableExtraction},
	KindGeneric:       {FeatureTextDetection},
}

// ProcessingRequest describes one document to run through the pipeline.
// Built per call and never mutated after construction.
type ProcessingRequest struct {
	DocumentID  string            `json:"document_id"`
	StoragePath string            `json:"storage_path"`
	SizeBytes   int64             `json:"size_bytes"`
	MimeType    string            `json:"mime_type"`
	Kind        DocumentKind      `json:"kind"`
	Features    []Feature         `json:"features"`
	Options     map[string]string `json:"options,omitempty"`
}

type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type TextBlock struct {
	Text               string      `json:"text"`
	MeasuredConfidence float64     `json:"measured_confidence"`
	Bounds             BoundingBox `json:"bounds"`
}

// FormField carries either an OCR-measured confidence (cloud engine) or a
// fixed heuristic confidence (regex-derived local fields). The two do not
// measure the same thing and stay in separate fields.
type FormField struct {
	Key                 string  `json:"key"`
	Value               string  `json:"value"`
	MeasuredConfidence  float64 `json:"measured_confidence,omitempty"`
	HeuristicConfidence float64 `json:"heuristic_confidence,omitempty"`
}

type TableCell struct {
	Text               string  `json:"text"`
	MeasuredConfidence float64 `json:"measured_confidence"`
}

type Table struct {
	Rows [][]TableCell `json:"rows"`
}

type Signature struct {
	MeasuredConfidence float64     `json:"measured_confidence"`
	Bounds             BoundingBox `json:"bounds"`
}

// EngineResult is the normalized output of one engine attempt. It is owned by
// the orchestrator for the duration of that attempt; a fallback result always
// replaces it wholesale, never merges into it.
type EngineResult struct {
	Engine          EngineID    `json:"engine"`
	Text            string      `json:"text"`
	Blocks          []TextBlock `json:"blocks"`
	Forms           []FormField `json:"forms"`
	Tables          []Table     `json:"tables"`
	Signatures      []Signature `json:"signatures"`
	LineConfidences []float64   `json:"line_confidences"`
	AvgConfidence   float64     `json:"avg_confidence"`
	Pages           int         `json:"pages"`
}

type QualityTier string

const (
	TierExcellent    QualityTier = "excellent"
	TierGood         QualityTier = "good"
	TierAcceptable   QualityTier = "acceptable"
	TierPoor         QualityTier = "poor"
	TierUnacceptable QualityTier = "unacceptable"
)

// QualityVerdict is derived from an EngineResult and never persisted. The
// three flags are independent checks, not mutually exclusive states.
type QualityVerdict struct {
	AvgConfidence float64     `json:"avg_confidence"`
	MinConfidence float64     `json:"min_confidence"`
	TextLength    int         `json:"text_length"`
	Acceptable    bool        `json:"acceptable"`
	NeedsFallback bool        `json:"needs_fallback"`
	NeedsRetry    bool        `json:"needs_retry"`
	Tier          QualityTier `json:"tier"`
}

// ProcessingOutcome is the only artifact returned to callers. Failure is
// carried here as data; the orchestrator never raises it.
type ProcessingOutcome struct {
	Success        bool          `json:"success"`
	Text           string        `json:"text"`
	Confidence     float64       `json:"confidence"`
	Forms          []FormField   `json:"forms,omitempty"`
	Tables         []Table       `json:"tables,omitempty"`
	EngineUsed     string        `json:"engine_used"`
	Attempts       int           `json:"attempts"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
	ErrorCategory  string        `json:"error_category,omitempty"`
}
