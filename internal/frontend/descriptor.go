package frontend

import (
	"encoding/json"
	"fmt"
	"os"

	"dddlens/internal/symbol"
)

// Descriptor is the interchange format for pre-parsed units produced by
// external front ends (tree-sitter pipelines, compiler plugins, git-diff
// extractors). Any language can feed the engine through this path.
type Descriptor struct {
	Units []symbol.SourceUnit `json:"units"`
}

// LoadDescriptor reads a JSON descriptor file of pre-parsed source units.
// Unit ordering is preserved: the descriptor's producer owns the order.
func LoadDescriptor(path string) ([]symbol.SourceUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	if len(d.Units) == 0 {
		return nil, fmt.Errorf("descriptor %s contains no units", path)
	}
	return d.Units, nil
}
