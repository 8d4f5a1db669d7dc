package baseline

import (
	"sort"

	"go.uber.org/zap"

	"dddlens/internal/classify"
	"dddlens/internal/symbol"
)

// ChangeKind tags a change record.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// StructuralDiff records exactly which aspects of a symbol changed between
// baseline and current.
type StructuralDiff struct {
	RoleChanged       bool     `json:"role_changed,omitempty"`
	PriorRole         string   `json:"prior_role,omitempty"`
	NewRole           string   `json:"new_role,omitempty"`
	ConfidenceChanged bool     `json:"confidence_changed,omitempty"`
	FieldsAdded       []string `json:"fields_added,omitempty"`
	FieldsRemoved     []string `json:"fields_removed,omitempty"`
	MethodsAdded      []string `json:"methods_added,omitempty"`
	MethodsRemoved    []string `json:"methods_removed,omitempty"`
	RelationsAdded    []string `json:"relations_added,omitempty"`
	RelationsRemoved  []string `json:"relations_removed,omitempty"`
}

// empty reports whether nothing changed.
func (d StructuralDiff) empty() bool {
	return !d.RoleChanged && !d.ConfidenceChanged &&
		len(d.FieldsAdded) == 0 && len(d.FieldsRemoved) == 0 &&
		len(d.MethodsAdded) == 0 && len(d.MethodsRemoved) == 0 &&
		len(d.RelationsAdded) == 0 && len(d.RelationsRemoved) == 0
}

// ChangeRecord is one symbol-level delta between baseline and current.
type ChangeRecord struct {
	SymbolID symbol.ID  `json:"symbol_id"`
	Change   ChangeKind `json:"change"`
	// Prior is nil for Added; New is nil for Removed.
	Prior *classify.Classification `json:"prior,omitempty"`
	New   *classify.Classification `json:"new,omitempty"`
	Diff  *StructuralDiff          `json:"diff,omitempty"`
}

// Differ compares a stored baseline against a fresh artifact.
//
// Symbols match by stable ID. Renames are not resolved automatically: a
// rename surfaces as a paired Removed+Added unless the caller supplies an
// explicit alias hint mapping the old ID to the new one.
type Differ struct {
	log *zap.Logger
}

// NewDiffer creates a differ.
func NewDiffer(log *zap.Logger) *Differ {
	if log == nil {
		log = zap.NewNop()
	}
	return &Differ{log: log}
}

// Diff produces change records ordered by symbol ID. Both artifacts must
// carry the current schema version; a mismatch fails fast with
// ErrSchemaMismatch. Diffing an artifact against itself yields zero records.
func (d *Differ) Diff(base, current *Artifact, aliases map[symbol.ID]symbol.ID) ([]ChangeRecord, error) {
	if err := checkSchema(base); err != nil {
		return nil, err
	}
	if err := checkSchema(current); err != nil {
		return nil, err
	}

	baseIdx := base.index()
	curIdx := current.index()

	// Apply alias hints: treat the baseline record as if it already had the
	// new ID, so an aliased rename diffs as Modified (or nothing). Relation
	// endpoints are remapped in every record, otherwise edges touching the
	// renamed symbol would surface as rename artifacts.
	for oldID, newID := range aliases {
		if rec, ok := baseIdx[oldID]; ok {
			delete(baseIdx, oldID)
			rec.Symbol.ID = newID
			baseIdx[newID] = rec
		}
	}
	if len(aliases) > 0 {
		for id, rec := range baseIdx {
			rec.Relations = remapEndpoints(rec.Relations, aliases)
			baseIdx[id] = rec
		}
	}

	var records []ChangeRecord

	for _, id := range current.ids() {
		cur := curIdx[id]
		prior, existed := baseIdx[id]
		if !existed {
			cls := cur.Classification
			records = append(records, ChangeRecord{
				SymbolID: id,
				Change:   ChangeAdded,
				New:      &cls,
			})
			continue
		}
		diff := structuralDiff(prior, cur)
		if diff.empty() {
			continue
		}
		priorCls := prior.Classification
		newCls := cur.Classification
		records = append(records, ChangeRecord{
			SymbolID: id,
			Change:   ChangeModified,
			Prior:    &priorCls,
			New:      &newCls,
			Diff:     &diff,
		})
	}

	baseIDs := make([]symbol.ID, 0, len(baseIdx))
	for id := range baseIdx {
		baseIDs = append(baseIDs, id)
	}
	sort.Slice(baseIDs, func(i, j int) bool { return baseIDs[i] < baseIDs[j] })
	for _, id := range baseIDs {
		if _, still := curIdx[id]; still {
			continue
		}
		cls := baseIdx[id].Classification
		records = append(records, ChangeRecord{
			SymbolID: id,
			Change:   ChangeRemoved,
			Prior:    &cls,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].SymbolID != records[j].SymbolID {
			return records[i].SymbolID < records[j].SymbolID
		}
		return records[i].Change < records[j].Change
	})

	d.log.Debug("baseline diff complete",
		zap.Int("baseline_symbols", len(base.Records)),
		zap.Int("current_symbols", len(current.Records)),
		zap.Int("changes", len(records)))
	return records, nil
}

// structuralDiff compares the classification, field set, method set, and
// relationship set of a matched symbol pair.
func structuralDiff(prior, cur Record) StructuralDiff {
	var d StructuralDiff

	if prior.Classification.Role != cur.Classification.Role {
		d.RoleChanged = true
		d.PriorRole = string(prior.Classification.Role)
		d.NewRole = string(cur.Classification.Role)
	}
	if prior.Classification.Confidence != cur.Classification.Confidence {
		d.ConfidenceChanged = true
	}

	d.FieldsAdded, d.FieldsRemoved = setDiff(fieldNames(prior.Symbol), fieldNames(cur.Symbol))
	d.MethodsAdded, d.MethodsRemoved = setDiff(methodNames(prior.Symbol), methodNames(cur.Symbol))
	d.RelationsAdded, d.RelationsRemoved = setDiff(relationKeys(prior.Relations), relationKeys(cur.Relations))
	return d
}

func fieldNames(s symbol.Symbol) []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}

func methodNames(s symbol.Symbol) []string {
	out := make([]string, 0, len(s.Methods))
	for _, m := range s.Methods {
		out = append(out, m.Name)
	}
	return out
}

// remapEndpoints rewrites relation endpoints through the alias map. The
// slice is copied so the caller's artifact stays untouched.
func remapEndpoints(rels []symbol.Relationship, aliases map[symbol.ID]symbol.ID) []symbol.Relationship {
	out := make([]symbol.Relationship, len(rels))
	copy(out, rels)
	for i := range out {
		if id, ok := aliases[out[i].From]; ok {
			out[i].From = id
		}
		if id, ok := aliases[out[i].To]; ok {
			out[i].To = id
		}
	}
	return out
}

func relationKeys(rels []symbol.Relationship) []string {
	out := make([]string, 0, len(rels))
	for _, r := range rels {
		out = append(out, r.Key())
	}
	return out
}

// setDiff returns (added, removed) between two name sets, sorted.
func setDiff(prior, cur []string) (added, removed []string) {
	priorSet := make(map[string]bool, len(prior))
	for _, x := range prior {
		priorSet[x] = true
	}
	curSet := make(map[string]bool, len(cur))
	for _, x := range cur {
		curSet[x] = true
	}
	for _, x := range cur {
		if !priorSet[x] {
			added = append(added, x)
		}
	}
	for _, x := range prior {
		if !curSet[x] {
			removed = append(removed, x)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
