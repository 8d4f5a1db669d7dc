// Package report assembles the engine's final structured output. The
// compiler performs no further inference: it only collects what earlier
// stages produced.
package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"dddlens/internal/antipattern"
	"dddlens/internal/baseline"
	"dddlens/internal/classify"
	"dddlens/internal/symbol"
)

// SchemaVersion tags the report payload for downstream renderers.
const SchemaVersion = 1

// Report is the sole handoff to downstream document-rendering collaborators.
// Once compiled it is immutable: a rerun produces a new report, never an
// edit of the old one.
type Report struct {
	RunID         string    `json:"run_id"`
	SchemaVersion int       `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`

	// Incomplete marks a cancelled run: the report covers only the units
	// finished before cancellation.
	Incomplete bool `json:"incomplete,omitempty"`

	Classifications []classify.Classification `json:"classifications"`
	Findings        []antipattern.Finding     `json:"findings"`

	// Changes is populated only in diff mode.
	Changes []baseline.ChangeRecord `json:"changes,omitempty"`

	// Skipped lists units excluded from the graph and why.
	Skipped []symbol.SkippedUnit `json:"skipped,omitempty"`
}

// Compile assembles the final report.
func Compile(cls []classify.Classification, findings []antipattern.Finding,
	changes []baseline.ChangeRecord, skipped []symbol.SkippedUnit, incomplete bool) *Report {
	return &Report{
		RunID:           uuid.NewString(),
		SchemaVersion:   SchemaVersion,
		GeneratedAt:     time.Now().UTC(),
		Incomplete:      incomplete,
		Classifications: cls,
		Findings:        findings,
		Changes:         changes,
		Skipped:         skipped,
	}
}

// Encode serializes the report for the downstream collaborator.
func (r *Report) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
