package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePricing(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pricing fixture: %v", err)
	}
	return path
}

func TestLoadPriceTable(t *testing.T) {
	path := writePricing(t, `prices:
  text_detection: 0.0015
  form_extraction: 0.05
  table_extraction: 0.015
`)

	prices, err := LoadPriceTable(path)
	if err != nil {
		t.Fatalf("LoadPriceTable() error = %v", err)
	}
	if len(prices) != 3 {
		t.Fatalf("expected 3 prices, got %d", len(prices))
	}
	if prices["form_extraction"] != 0.05 {
		t.Fatalf("unexpected form price %.4f", prices["form_extraction"])
	}
}

func TestLoadPriceTableEmptyPath(t *testing.T) {
	prices, err := LoadPriceTable("")
	if err != nil {
		t.Fatalf("empty path must not error, got %v", err)
	}
	if prices != nil {
		t.Fatalf("empty path returns nil for built-in defaults, got %v", prices)
	}
}

func TestLoadPriceTableMissingFile(t *testing.T) {
	if _, err := LoadPriceTable(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadPriceTableRejectsNegativePrice(t *testing.T) {
	path := writePricing(t, `prices:
  form_extraction: -0.05
`)
	if _, err := LoadPriceTable(path); err == nil {
		t.Fatal("expected error for negative price")
	}
}

func TestLoadPriceTableRejectsEmptyTable(t *testing.T) {
	path := writePricing(t, "prices: {}\n")
	if _, err := LoadPriceTable(path); err == nil {
		t.Fatal("expected error for empty price table")
	}
}

func TestLoadPriceTableRejectsGarbage(t *testing.T) {
	path := writePricing(t, "{{ not yaml ]]")
	if _, err := LoadPriceTable(path); err == nil {
		t.Fatal("expected parse error")
	}
}
