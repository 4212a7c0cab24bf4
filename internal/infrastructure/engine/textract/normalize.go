package textract

import (
	"sort"
	"strings"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

// block mirrors one node of the provider's response graph.
type block struct {
	ID            string         `json:"Id"`
	BlockType     string         `json:"BlockType"`
	Text          string         `json:"Text"`
	Confidence    float64        `json:"Confidence"`
	EntityTypes   []string       `json:"EntityTypes"`
	RowIndex      int            `json:"RowIndex"`
	ColumnIndex   int            `json:"ColumnIndex"`
	Relationships []relationship `json:"Relationships"`
	Geometry      geometry       `json:"Geometry"`
}

type relationship struct {
	Type string   `json:"Type"`
	IDs  []string `json:"Ids"`
}

type geometry struct {
	BoundingBox boundingBox `json:"BoundingBox"`
}

type boundingBox struct {
	Left   float64 `json:"Left"`
	Top    float64 `json:"Top"`
	Width  float64 `json:"Width"`
	Height float64 `json:"Height"`
}

// normalizeBlocks flattens the provider's block graph into the canonical
// shape: ordered text lines, key/value pairs resolved over relationship
// edges, tables organized into 2-D grids, and signature detections.
func normalizeBlocks(blocks []block) *domain.EngineResult {
	byID := make(map[string]block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	result := &domain.EngineResult{}
	var textParts []string

	for _, b := range blocks {
		switch b.BlockType {
		case "PAGE":
			result.Pages++
		case "LINE":
			textParts = append(textParts, b.Text)
			result.Blocks = append(result.Blocks, domain.TextBlock{
				Text:               b.Text,
				MeasuredConfidence: b.Confidence,
				Bounds:             bounds(b),
			})
			result.LineConfidences = append(result.LineConfidences, b.Confidence)
		case "KEY_VALUE_SET":
			if isKeyBlock(b) {
				if field, ok := resolveKeyValue(b, byID); ok {
					result.Forms = append(result.Forms, field)
				}
			}
		case "TABLE":
			if table, ok := resolveTable(b, byID); ok {
				result.Tables = append(result.Tables, table)
			}
		case "SIGNATURE":
			result.Signatures = append(result.Signatures, domain.Signature{
				MeasuredConfidence: b.Confidence,
				Bounds:             bounds(b),
			})
		}
	}

	result.Text = strings.Join(textParts, "\n")
	result.AvgConfidence = average(result.LineConfidences)
	if result.Pages == 0 {
		result.Pages = 1
	}
	return result
}

func isKeyBlock(b block) bool {
	for _, t := range b.EntityTypes {
		if t == "KEY" {
			return true
		}
	}
	return false
}

// resolveKeyValue follows the KEY block's VALUE edge to its value block and
// the CHILD edges of both to their word text.
func resolveKeyValue(key block, byID map[string]block) (domain.FormField, bool) {
	keyText := childText(key, byID)
	if keyText == "" {
		return domain.FormField{}, false
	}

	confidence := key.Confidence
	var valueText string
	for _, rel := range key.Relationships {
		if rel.Type != "VALUE" {
			continue
		}
		for _, id := range rel.IDs {
			value, ok := byID[id]
			if !ok {
				continue
			}
			valueText = childText(value, byID)
			if value.Confidence < confidence {
				confidence = value.Confidence
			}
		}
	}

	return domain.FormField{
		Key:                keyText,
		Value:              valueText,
		MeasuredConfidence: confidence,
	}, true
}

// resolveTable organizes the table's child cells into a dense grid indexed by
// the cells' row/column positions.
func resolveTable(table block, byID map[string]block) (domain.Table, bool) {
	type cellAt struct {
		row, col int
		cell     domain.TableCell
	}
	var cells []cellAt
	maxRow, maxCol := 0, 0

	for _, rel := range table.Relationships {
		if rel.Type != "CHILD" {
			continue
		}
		for _, id := range rel.IDs {
			child, ok := byID[id]
			if !ok || child.BlockType != "CELL" {
				continue
			}
			if child.RowIndex < 1 || child.ColumnIndex < 1 {
				continue
			}
			cells = append(cells, cellAt{
				row: child.RowIndex,
				col: child.ColumnIndex,
				cell: domain.TableCell{
					Text:               childText(child, byID),
					MeasuredConfidence: child.Confidence,
				},
			})
			if child.RowIndex > maxRow {
				maxRow = child.RowIndex
			}
			if child.ColumnIndex > maxCol {
				maxCol = child.ColumnIndex
			}
		}
	}
	if len(cells) == 0 {
		return domain.Table{}, false
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].row != cells[j].row {
			return cells[i].row < cells[j].row
		}
		return cells[i].col < cells[j].col
	})

	rows := make([][]domain.TableCell, maxRow)
	for i := range rows {
		rows[i] = make([]domain.TableCell, maxCol)
	}
	for _, c := range cells {
		rows[c.row-1][c.col-1] = c.cell
	}
	return domain.Table{Rows: rows}, true
}

func childText(b block, byID map[string]block) string {
	var words []string
	for _, rel := range b.Relationships {
		if rel.Type != "CHILD" {
			continue
		}
		for _, id := range rel.IDs {
			child, ok := byID[id]
			if !ok {
				continue
			}
			if child.BlockType == "WORD" && child.Text != "" {
				words = append(words, child.Text)
			}
			if child.BlockType == "SELECTION_ELEMENT" {
				words = append(words, "[X]")
			}
		}
	}
	return strings.Join(words, " ")
}

func bounds(b block) domain.BoundingBox {
	return domain.BoundingBox{
		Left:   b.Geometry.BoundingBox.Left,
		Top:    b.Geometry.BoundingBox.Top,
		Width:  b.Geometry.BoundingBox.Width,
		Height: b.Geometry.BoundingBox.Height,
	}
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
