// Package tesseract adapts the free local OCR engine. Images are
// pre-processed before recognition and structured fields are approximated
// with regex extractors, since the engine has no native forms or tables.
package tesseract

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
)

type Engine struct {
	storage       ports.ObjectStorage
	languages     []string
	clientFactory func() *gosseract.Client
}

func New(storage ports.ObjectStorage, languages []string) *Engine {
	if len(languages) == 0 {
		languages = []string{"por", "eng"}
	}
	return &Engine{
		storage:       storage,
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
}

// Analyze OCRs one raster document. PDFs are not rasterized locally; they
// come back as a provider rejection so the classifier routes them elsewhere.
func (e *Engine) Analyze(ctx context.Context, req domain.ProcessingRequest) (*domain.EngineResult, error) {
	if req.MimeType == "application/pdf" {
		return nil, &domain.ProviderError{
			Engine:  domain.EngineLocal,
			Code:    "InvalidImageFormatException",
			Message: "local engine cannot rasterize pdf input",
		}
	}

	raw, err := e.readDocument(ctx, req.StoragePath)
	if err != nil {
		return nil, err
	}

	prepared, err := preprocess(raw)
	if err != nil {
		return nil, &domain.ProviderError{
			Engine:  domain.EngineLocal,
			Code:    "InvalidImageFormatException",
			Message: "image pre-processing failed",
			Cause:   err,
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := e.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return nil, &domain.ProviderError{
			Engine:  domain.EngineLocal,
			Code:    "InvalidImageFormatException",
			Message: "tesseract rejected prepared image",
			Cause:   err,
		}
	}

	// Pass 1: plain text.
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract text pass: %w", err)
	}
	text = strings.TrimSpace(text)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Pass 2: positional output with word confidences.
	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("tesseract positional pass: %w", err)
	}

	blocks, lineConfidences := groupBoxes(boxes)

	result := &domain.EngineResult{
		Engine:          domain.EngineLocal,
		Text:            text,
		Blocks:          blocks,
		Forms:           extractFields(text),
		LineConfidences: lineConfidences,
		AvgConfidence:   average(lineConfidences),
		Pages:           1,
	}
	return result, nil
}

func (e *Engine) readDocument(ctx context.Context, key string) ([]byte, error) {
	reader, err := e.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return raw, nil
}

// groupBoxes reconstructs text blocks from word-level positional output,
// grouping by the engine's block index, and line confidences by block/line.
func groupBoxes(boxes []gosseract.BoundingBox) ([]domain.TextBlock, []float64) {
	type lineKey struct{ block, line int }

	blockWords := make(map[int][]gosseract.BoundingBox)
	lineSums := make(map[lineKey]float64)
	lineCounts := make(map[lineKey]int)

	for _, box := range boxes {
		blockWords[box.BlockNum] = append(blockWords[box.BlockNum], box)
		key := lineKey{box.BlockNum, box.LineNum}
		lineSums[key] += box.Confidence
		lineCounts[key]++
	}

	blockNums := make([]int, 0, len(blockWords))
	for num := range blockWords {
		blockNums = append(blockNums, num)
	}
	sort.Ints(blockNums)

	blocks := make([]domain.TextBlock, 0, len(blockNums))
	for _, num := range blockNums {
		words := blockWords[num]
		var texts []string
		var confSum float64
		minX, minY := words[0].Box.Min.X, words[0].Box.Min.Y
		maxX, maxY := words[0].Box.Max.X, words[0].Box.Max.Y
		for _, w := range words {
			texts = append(texts, w.Word)
			confSum += w.Confidence
			if w.Box.Min.X < minX {
				minX = w.Box.Min.X
			}
			if w.Box.Min.Y < minY {
				minY = w.Box.Min.Y
			}
			if w.Box.Max.X > maxX {
				maxX = w.Box.Max.X
			}
			if w.Box.Max.Y > maxY {
				maxY = w.Box.Max.Y
			}
		}
		blocks = append(blocks, domain.TextBlock{
			Text:               strings.Join(texts, " "),
			MeasuredConfidence: confSum / float64(len(words)),
			Bounds: domain.BoundingBox{
				Left:   float64(minX),
				Top:    float64(minY),
				Width:  float64(maxX - minX),
				Height: float64(maxY - minY),
			},
		})
	}

	lineKeys := make([]lineKey, 0, len(lineSums))
	for key := range lineSums {
		lineKeys = append(lineKeys, key)
	}
	sort.Slice(lineKeys, func(i, j int) bool {
		if lineKeys[i].block != lineKeys[j].block {
			return lineKeys[i].block < lineKeys[j].block
		}
		return lineKeys[i].line < lineKeys[j].line
	})

	confidences := make([]float64, 0, len(lineKeys))
	for _, key := range lineKeys {
		confidences = append(confidences, lineSums[key]/float64(lineCounts[key]))
	}
	return blocks, confidences
}

func average(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
