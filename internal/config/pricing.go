package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// pricingFile is the YAML shape for per-feature page prices:
//
//	prices:
//	  form_extraction: 0.05
//	  table_extraction: 0.015
type pricingFile struct {
	Prices map[string]float64 `yaml:"prices"`
}

// LoadPriceTable reads per-feature page prices from a YAML file. An empty
// path returns nil so callers fall back to built-in defaults.
func LoadPriceTable(path string) (map[string]float64, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	var parsed pricingFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse pricing file: %w", err)
	}
	if len(parsed.Prices) == 0 {
		return nil, fmt.Errorf("pricing file %s defines no prices", path)
	}
	for feature, price := range parsed.Prices {
		if price < 0 {
			return nil, fmt.Errorf("pricing file %s: negative price for %s", path, feature)
		}
	}
	return parsed.Prices, nil
}
