package textract

import (
	"math"
	"testing"
)

func lineBlock(id, text string, confidence float64) block {
	return block{ID: id, BlockType: "LINE", Text: text, Confidence: confidence}
}

func wordBlock(id, text string) block {
	return block{ID: id, BlockType: "WORD", Text: text, Confidence: 90}
}

func TestNormalizeLinesAndText(t *testing.T) {
	result := normalizeBlocks([]block{
		{ID: "p1", BlockType: "PAGE"},
		lineBlock("l1", "NOME COMPLETO", 95),
		lineBlock("l2", "MARIA DA SILVA", 85),
	})

	if result.Text != "NOME COMPLETO\nMARIA DA SILVA" {
		t.Fatalf("unexpected joined text %q", result.Text)
	}
	if len(result.Blocks) != 2 {
		t.Fatalf("expected 2 text blocks, got %d", len(result.Blocks))
	}
	if len(result.LineConfidences) != 2 {
		t.Fatalf("expected 2 line confidences, got %d", len(result.LineConfidences))
	}
	if math.Abs(result.AvgConfidence-90) > 1e-9 {
		t.Fatalf("expected avg 90, got %.2f", result.AvgConfidence)
	}
	if result.Pages != 1 {
		t.Fatalf("expected 1 page, got %d", result.Pages)
	}
}

func TestNormalizeCountsPages(t *testing.T) {
	result := normalizeBlocks([]block{
		{ID: "p1", BlockType: "PAGE"},
		{ID: "p2", BlockType: "PAGE"},
		{ID: "p3", BlockType: "PAGE"},
	})
	if result.Pages != 3 {
		t.Fatalf("expected 3 pages, got %d", result.Pages)
	}
}

func TestNormalizeEmptyDefaultsToOnePage(t *testing.T) {
	result := normalizeBlocks(nil)
	if result.Pages != 1 {
		t.Fatalf("empty responses still count one page, got %d", result.Pages)
	}
	if result.AvgConfidence != 0 {
		t.Fatalf("expected zero confidence, got %.2f", result.AvgConfidence)
	}
}

func TestNormalizeResolvesKeyValuePairs(t *testing.T) {
	blocks := []block{
		{
			ID: "k1", BlockType: "KEY_VALUE_SET", EntityTypes: []string{"KEY"}, Confidence: 92,
			Relationships: []relationship{
				{Type: "CHILD", IDs: []string{"w1"}},
				{Type: "VALUE", IDs: []string{"v1"}},
			},
		},
		{
			ID: "v1", BlockType: "KEY_VALUE_SET", EntityTypes: []string{"VALUE"}, Confidence: 88,
			Relationships: []relationship{{Type: "CHILD", IDs: []string{"w2", "w3"}}},
		},
		wordBlock("w1", "Nome"),
		wordBlock("w2", "Maria"),
		wordBlock("w3", "Silva"),
	}

	result := normalizeBlocks(blocks)
	if len(result.Forms) != 1 {
		t.Fatalf("expected 1 form field, got %d", len(result.Forms))
	}
	field := result.Forms[0]
	if field.Key != "Nome" {
		t.Fatalf("expected key Nome, got %q", field.Key)
	}
	if field.Value != "Maria Silva" {
		t.Fatalf("expected joined value, got %q", field.Value)
	}
	if field.MeasuredConfidence != 88 {
		t.Fatalf("pair confidence should be the minimum of key and value, got %.1f", field.MeasuredConfidence)
	}
}

func TestNormalizeSkipsValueOnlyBlocks(t *testing.T) {
	blocks := []block{
		{
			ID: "v1", BlockType: "KEY_VALUE_SET", EntityTypes: []string{"VALUE"},
			Relationships: []relationship{{Type: "CHILD", IDs: []string{"w1"}}},
		},
		wordBlock("w1", "orphan"),
	}
	if result := normalizeBlocks(blocks); len(result.Forms) != 0 {
		t.Fatalf("VALUE blocks without a KEY must not produce fields, got %+v", result.Forms)
	}
}

func TestNormalizeSelectionElementAsCheckbox(t *testing.T) {
	blocks := []block{
		{
			ID: "k1", BlockType: "KEY_VALUE_SET", EntityTypes: []string{"KEY"}, Confidence: 90,
			Relationships: []relationship{
				{Type: "CHILD", IDs: []string{"w1"}},
				{Type: "VALUE", IDs: []string{"v1"}},
			},
		},
		{
			ID: "v1", BlockType: "KEY_VALUE_SET", EntityTypes: []string{"VALUE"}, Confidence: 90,
			Relationships: []relationship{{Type: "CHILD", IDs: []string{"s1"}}},
		},
		wordBlock("w1", "Accepted"),
		{ID: "s1", BlockType: "SELECTION_ELEMENT", Confidence: 90},
	}

	result := normalizeBlocks(blocks)
	if len(result.Forms) != 1 || result.Forms[0].Value != "[X]" {
		t.Fatalf("selection elements render as [X], got %+v", result.Forms)
	}
}

func TestNormalizeBuildsDenseTableGrid(t *testing.T) {
	blocks := []block{
		{
			ID: "t1", BlockType: "TABLE",
			Relationships: []relationship{{Type: "CHILD", IDs: []string{"c11", "c22", "c12"}}},
		},
		{
			ID: "c11", BlockType: "CELL", RowIndex: 1, ColumnIndex: 1, Confidence: 95,
			Relationships: []relationship{{Type: "CHILD", IDs: []string{"w1"}}},
		},
		{
			ID: "c12", BlockType: "CELL", RowIndex: 1, ColumnIndex: 2, Confidence: 93,
			Relationships: []relationship{{Type: "CHILD", IDs: []string{"w2"}}},
		},
		// Row 2 column 1 is missing from the response on purpose.
		{
			ID: "c22", BlockType: "CELL", RowIndex: 2, ColumnIndex: 2, Confidence: 91,
			Relationships: []relationship{{Type: "CHILD", IDs: []string{"w3"}}},
		},
		wordBlock("w1", "Item"),
		wordBlock("w2", "Valor"),
		wordBlock("w3", "120,00"),
	}

	result := normalizeBlocks(blocks)
	if len(result.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(result.Tables))
	}
	rows := result.Tables[0].Rows
	if len(rows) != 2 || len(rows[0]) != 2 {
		t.Fatalf("expected dense 2x2 grid, got %dx%d", len(rows), len(rows[0]))
	}
	if rows[0][0].Text != "Item" || rows[0][1].Text != "Valor" {
		t.Fatalf("unexpected header row %+v", rows[0])
	}
	if rows[1][0].Text != "" {
		t.Fatalf("missing cells stay empty, got %q", rows[1][0].Text)
	}
	if rows[1][1].Text != "120,00" {
		t.Fatalf("unexpected cell %+v", rows[1][1])
	}
}

func TestNormalizeEmptyTableDropped(t *testing.T) {
	result := normalizeBlocks([]block{{ID: "t1", BlockType: "TABLE"}})
	if len(result.Tables) != 0 {
		t.Fatalf("tables without cells are dropped, got %+v", result.Tables)
	}
}

func TestNormalizeSignatures(t *testing.T) {
	result := normalizeBlocks([]block{
		{
			ID: "s1", BlockType: "SIGNATURE", Confidence: 87,
			Geometry: geometry{BoundingBox: boundingBox{Left: 0.1, Top: 0.8, Width: 0.3, Height: 0.05}},
		},
	})
	if len(result.Signatures) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(result.Signatures))
	}
	sig := result.Signatures[0]
	if sig.MeasuredConfidence != 87 {
		t.Fatalf("expected confidence 87, got %.1f", sig.MeasuredConfidence)
	}
	if sig.Bounds.Left != 0.1 || sig.Bounds.Height != 0.05 {
		t.Fatalf("unexpected bounds %+v", sig.Bounds)
	}
}
