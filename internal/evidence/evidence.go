// Package evidence defines the three-level confidence scale shared by
// classifications and findings, and renders citation rationales.
//
// Every output of the engine must be explainable by citation: a level is
// never attached without the rule IDs that produced it.
package evidence

import (
	"fmt"
	"sort"
	"strings"
)

// Level is the discretized confidence/severity scale.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// rank orders levels for monotonicity comparisons. Higher is stronger.
func (l Level) rank() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	}
	return 0
}

// AtLeast reports whether l is at least as strong as other.
func (l Level) AtLeast(other Level) bool {
	return l.rank() >= other.rank()
}

// Valid reports whether l is one of the three defined levels.
func (l Level) Valid() bool {
	return l == LevelHigh || l == LevelMedium || l == LevelLow
}

// Discretize maps an accumulated rule weight onto the three-level scale.
// Weight accumulation is monotone, so adding a corroborating rule match
// can never lower the resulting level.
func Discretize(weight, highThreshold, mediumThreshold float64) Level {
	switch {
	case weight >= highThreshold:
		return LevelHigh
	case weight >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// SortIDs returns a sorted copy of rule IDs for deterministic output.
func SortIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

// Rationale renders the citation string for a classification or finding.
// Subject is what was concluded (a role or anti-pattern ID), ids are the
// fired rule IDs backing the conclusion.
func Rationale(subject string, ids []string) string {
	if len(ids) == 0 {
		return fmt.Sprintf("%s: no supporting rules fired", subject)
	}
	return fmt.Sprintf("%s: supported by %s", subject, strings.Join(SortIDs(ids), ", "))
}
