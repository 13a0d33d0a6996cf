package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/trackstore/internal/provider"
)

// parseValues decodes a single row of column values. The text may be YAML
// or JSON, e.g. '{"name": "Morning run", "category": "run"}'.
func parseValues(text string) (provider.Values, error) {
	var v map[string]any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("invalid values: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("invalid values: expected a mapping of column to value")
	}
	return provider.Values(v), nil
}

// parseValuesList decodes a sequence of rows.
func parseValuesList(data []byte) ([]provider.Values, error) {
	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("invalid values: expected a list of mappings: %w", err)
	}
	out := make([]provider.Values, len(rows))
	for i, r := range rows {
		if r == nil {
			return nil, fmt.Errorf("invalid values: row %d is empty", i)
		}
		out[i] = provider.Values(r)
	}
	return out, nil
}

// readValuesList reads rows from the --file path, or from text when no file
// is given.
func readValuesList(path, text string) ([]provider.Values, error) {
	if path == "" {
		return parseValuesList([]byte(text))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parseValuesList(data)
}
