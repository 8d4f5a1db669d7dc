// Package baseline persists classified symbol graphs between runs and diffs
// them. The artifact is schema-versioned: an incompatible version fails diff
// mode fast with ErrSchemaMismatch instead of guessing at a mapping.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"dddlens/internal/classify"
	"dddlens/internal/symbol"
)

// SchemaVersion tags every artifact written by this build. Bump it whenever
// the record layout changes incompatibly.
const SchemaVersion = 1

// ErrSchemaMismatch marks an incompatible baseline artifact. Fatal for diff
// mode only; fresh-run mode is unaffected.
var ErrSchemaMismatch = errors.New("baseline schema version mismatch")

// Record pairs a symbol with its classification and outbound edges at
// snapshot time.
type Record struct {
	Symbol         symbol.Symbol           `json:"symbol"`
	Classification classify.Classification `json:"classification"`
	Relations      []symbol.Relationship   `json:"relations,omitempty"`
}

// Artifact is one serialized classified symbol graph.
type Artifact struct {
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	Records       []Record  `json:"records"`
}

// Snapshot captures a classified graph as an artifact. Records are sorted by
// symbol ID so identical runs serialize byte-identically.
func Snapshot(g *symbol.Graph, cls []classify.Classification) *Artifact {
	byID := classify.Index(cls)
	records := make([]Record, 0, g.Len())
	for _, s := range g.Symbols() {
		records = append(records, Record{
			Symbol:         *s,
			Classification: byID[s.ID],
			Relations:      g.RelationsFrom(s.ID),
		})
	}
	return &Artifact{
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().UTC(),
		Records:       records,
	}
}

// checkSchema validates an artifact's schema tag.
func checkSchema(a *Artifact) error {
	if a.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: artifact has version %d, engine expects %d",
			ErrSchemaMismatch, a.SchemaVersion, SchemaVersion)
	}
	return nil
}

// Encode serializes the artifact.
func (a *Artifact) Encode() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// Decode parses and schema-checks an artifact.
func Decode(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse baseline: %w", err)
	}
	if err := checkSchema(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveFile writes the artifact to a JSON file.
func (a *Artifact) SaveFile(path string) error {
	data, err := a.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}

// LoadFile reads and schema-checks an artifact from a JSON file.
func LoadFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	return Decode(data)
}

// index builds an ID lookup over the artifact's records.
func (a *Artifact) index() map[symbol.ID]Record {
	out := make(map[symbol.ID]Record, len(a.Records))
	for _, r := range a.Records {
		out[r.Symbol.ID] = r
	}
	return out
}

// ids returns all record IDs, sorted.
func (a *Artifact) ids() []symbol.ID {
	out := make([]symbol.ID, 0, len(a.Records))
	for _, r := range a.Records {
		out = append(out, r.Symbol.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
