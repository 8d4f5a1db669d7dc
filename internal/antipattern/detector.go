// Package antipattern runs the second rule set over the classified graph and
// flags structural violations.
//
// The detector is gated strictly behind the classifier stage: it consumes
// Classifications, never the other way around, and it never mutates them.
package antipattern

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"dddlens/internal/classify"
	"dddlens/internal/config"
	"dddlens/internal/evidence"
	"dddlens/internal/rules"
	"dddlens/internal/symbol"
)

// Anti-pattern identifiers. Severity is a static function of which check
// fired, never recomputed per finding.
const (
	AnemicModel             = "anemic_model"
	GodClass                = "god_class"
	PrimitiveObsession      = "primitive_obsession"
	MegaAggregate           = "mega_aggregate"
	CrossAggregateReference = "cross_aggregate_reference"
	MissingRepository       = "missing_repository"
)

// severityOf maps each anti-pattern to its fixed severity.
var severityOf = map[string]evidence.Level{
	AnemicModel:             evidence.LevelHigh,
	GodClass:                evidence.LevelHigh,
	PrimitiveObsession:      evidence.LevelMedium,
	MegaAggregate:           evidence.LevelMedium,
	CrossAggregateReference: evidence.LevelHigh,
	MissingRepository:       evidence.LevelMedium,
}

// Finding is one detected structural violation. The evidence it carries
// (symbol IDs, field/method names) is sufficient to justify the flag without
// re-running analysis.
type Finding struct {
	AntiPattern string         `json:"anti_pattern"`
	Severity    evidence.Level `json:"severity"`
	Symbols     []symbol.ID    `json:"symbols"`
	// Details names the fields/methods/edges that triggered the check.
	Details   []string `json:"details,omitempty"`
	Rationale string   `json:"rationale"`
}

// Detector holds the configured limits.
type Detector struct {
	limits config.AntiPatternConfig
	log    *zap.Logger
}

// New creates a detector with the given limits.
func New(limits config.AntiPatternConfig, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{limits: limits, log: log}
}

// Detect runs all checks over the classified graph. Findings come back in a
// deterministic order: by anti-pattern ID, then by first involved symbol.
func (d *Detector) Detect(g *symbol.Graph, cls []classify.Classification) []Finding {
	byID := classify.Index(cls)

	var findings []Finding
	findings = append(findings, d.anemicModels(g, byID)...)
	findings = append(findings, d.godClasses(g)...)
	findings = append(findings, d.primitiveObsession(g, byID)...)
	findings = append(findings, d.megaAggregates(g, byID)...)
	findings = append(findings, d.crossAggregateReferences(g, byID)...)
	findings = append(findings, d.missingRepositories(g, byID)...)

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].AntiPattern != findings[j].AntiPattern {
			return findings[i].AntiPattern < findings[j].AntiPattern
		}
		return findings[i].Symbols[0] < findings[j].Symbols[0]
	})

	d.log.Debug("anti-pattern detection complete", zap.Int("findings", len(findings)))
	return findings
}

// newFinding stamps the fixed severity and a citation rationale.
func newFinding(pattern string, symbols []symbol.ID, details []string, what string) Finding {
	return Finding{
		AntiPattern: pattern,
		Severity:    severityOf[pattern],
		Symbols:     symbols,
		Details:     details,
		Rationale:   fmt.Sprintf("%s: %s", evidence.Rationale(pattern, []string{pattern}), what),
	}
}

// anemicModels flags Entity/Aggregate symbols with zero behavioral methods
// beyond simple accessors.
func (d *Detector) anemicModels(g *symbol.Graph, byID map[symbol.ID]classify.Classification) []Finding {
	var out []Finding
	for _, s := range g.Symbols() {
		c, ok := byID[s.ID]
		if !ok || (c.Role != rules.RoleEntity && c.Role != rules.RoleAggregateRoot) {
			continue
		}
		if rules.BehavioralMethodCount(s) > 0 {
			continue
		}
		names := methodNames(s)
		out = append(out, newFinding(AnemicModel,
			[]symbol.ID{s.ID},
			names,
			fmt.Sprintf("%s is classified %s but has no behavior beyond accessors (methods: %s)",
				s.Name, c.Role, joinOrNone(names))))
	}
	return out
}

// godClasses flags symbols whose method and field counts both exceed the
// configured limits with enough verb diversity to indicate unrelated
// responsibilities.
func (d *Detector) godClasses(g *symbol.Graph) []Finding {
	var out []Finding
	for _, s := range g.Symbols() {
		if len(s.Methods) <= d.limits.GodClassMethodLimit || len(s.Fields) <= d.limits.GodClassFieldLimit {
			continue
		}
		verbs := distinctVerbs(s)
		if len(verbs) < d.limits.GodClassVerbMin {
			continue
		}
		out = append(out, newFinding(GodClass,
			[]symbol.ID{s.ID},
			verbs,
			fmt.Sprintf("%s has %d methods and %d fields across %d distinct verbs (%s)",
				s.Name, len(s.Methods), len(s.Fields), len(verbs), strings.Join(verbs, ", "))))
	}
	return out
}

// primitiveObsession flags the same multi-primitive field combination
// recurring across symbols with no shared value object unifying it.
func (d *Detector) primitiveObsession(g *symbol.Graph, byID map[symbol.ID]classify.Classification) []Finding {
	syms := g.Symbols()

	primFields := make(map[symbol.ID][]string)
	for _, s := range syms {
		for _, f := range s.Fields {
			if isPrimitiveType(f.Type, g) {
				primFields[s.ID] = append(primFields[s.ID], strings.ToLower(f.Name))
			}
		}
		sort.Strings(primFields[s.ID])
	}

	// Pairwise intersections yield candidate combos; symbols sharing the
	// full combo group into one finding.
	combos := make(map[string][]symbol.ID)
	comboFields := make(map[string][]string)
	for i := 0; i < len(syms); i++ {
		for j := i + 1; j < len(syms); j++ {
			shared := intersect(primFields[syms[i].ID], primFields[syms[j].ID])
			if len(shared) < d.limits.PrimitiveComboMin {
				continue
			}
			key := strings.Join(shared, "+")
			comboFields[key] = shared
			combos[key] = appendUnique(combos[key], syms[i].ID, syms[j].ID)
		}
	}

	keys := make([]string, 0, len(combos))
	for k := range combos {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Finding
	for _, key := range keys {
		fields := comboFields[key]
		if comboUnifiedByValueObject(g, byID, fields) {
			continue
		}
		ids := combos[key]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, newFinding(PrimitiveObsession,
			ids,
			fields,
			fmt.Sprintf("primitive combination {%s} recurs across %d symbols with no shared value object",
				strings.Join(fields, ", "), len(ids))))
	}
	return out
}

// comboUnifiedByValueObject reports whether a value-object symbol already
// carries the whole combo and is actually used: it counts as unifying only
// when at least one other symbol holds an edge to it.
func comboUnifiedByValueObject(g *symbol.Graph, byID map[symbol.ID]classify.Classification, fields []string) bool {
	for _, s := range g.Symbols() {
		c, ok := byID[s.ID]
		if !ok || c.Role != rules.RoleValueObject || len(g.RelationsTo(s.ID)) == 0 {
			continue
		}
		covered := true
		for _, f := range fields {
			if fieldByLower(s, f) == "" {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

// megaAggregates flags aggregate roots composing more entity children than
// the configured limit.
func (d *Detector) megaAggregates(g *symbol.Graph, byID map[symbol.ID]classify.Classification) []Finding {
	var out []Finding
	for _, s := range g.Symbols() {
		c, ok := byID[s.ID]
		if !ok || c.Role != rules.RoleAggregateRoot {
			continue
		}
		var children []string
		for _, r := range g.RelationsFrom(s.ID) {
			if r.Kind != symbol.RelationComposition {
				continue
			}
			if cc, ok := byID[r.To]; ok && (cc.Role == rules.RoleEntity || cc.Role == rules.RoleAggregateRoot) {
				children = append(children, string(r.To))
			}
		}
		if len(children) <= d.limits.MegaAggregateChildLimit {
			continue
		}
		sort.Strings(children)
		out = append(out, newFinding(MegaAggregate,
			[]symbol.ID{s.ID},
			children,
			fmt.Sprintf("%s composes %d entity children (limit %d)",
				s.Name, len(children), d.limits.MegaAggregateChildLimit)))
	}
	return out
}

// crossAggregateReferences flags non-root entities holding a by-reference
// edge (not by-identity) into a different aggregate's root.
func (d *Detector) crossAggregateReferences(g *symbol.Graph, byID map[symbol.ID]classify.Classification) []Finding {
	var out []Finding
	for _, s := range g.Symbols() {
		c, ok := byID[s.ID]
		if !ok || c.Role != rules.RoleEntity {
			continue
		}
		ownRoot := g.OwningRoot(s.ID)
		for _, r := range g.RelationsFrom(s.ID) {
			if r.Kind != symbol.RelationReference {
				continue
			}
			target, ok := byID[r.To]
			if !ok || target.Role != rules.RoleAggregateRoot || r.To == ownRoot {
				continue
			}
			out = append(out, newFinding(CrossAggregateReference,
				[]symbol.ID{s.ID, r.To},
				[]string{r.Via},
				fmt.Sprintf("entity %s references aggregate root %s directly via field %q; hold its identity instead",
					s.Name, r.To.Name(), r.Via)))
		}
	}
	return out
}

// missingRepositories flags aggregate roots with no repository interface
// referencing them.
func (d *Detector) missingRepositories(g *symbol.Graph, byID map[symbol.ID]classify.Classification) []Finding {
	var out []Finding
	for _, s := range g.Symbols() {
		c, ok := byID[s.ID]
		if !ok || c.Role != rules.RoleAggregateRoot {
			continue
		}
		if hasRepositoryFor(g, byID, s) {
			continue
		}
		out = append(out, newFinding(MissingRepository,
			[]symbol.ID{s.ID},
			nil,
			fmt.Sprintf("aggregate root %s has no repository interface referencing it", s.Name)))
	}
	return out
}

// hasRepositoryFor reports whether any repository-classified interface
// references the aggregate, by edge or by method signature.
func hasRepositoryFor(g *symbol.Graph, byID map[symbol.ID]classify.Classification, agg *symbol.Symbol) bool {
	for _, s := range g.Symbols() {
		c, ok := byID[s.ID]
		if !ok || c.Role != rules.RoleRepositoryInterface {
			continue
		}
		for _, r := range g.RelationsFrom(s.ID) {
			if r.To == agg.ID {
				return true
			}
		}
		for _, m := range s.Methods {
			if signatureMentions(m.Signature, agg.Name) {
				return true
			}
		}
	}
	return false
}

// --- helpers ---

func methodNames(s *symbol.Symbol) []string {
	names := make([]string, 0, len(s.Methods))
	for _, m := range s.Methods {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// distinctVerbs extracts the leading camelCase word of each method name.
func distinctVerbs(s *symbol.Symbol) []string {
	seen := make(map[string]bool)
	for _, m := range s.Methods {
		verb := leadingWord(m.Name)
		if verb != "" {
			seen[verb] = true
		}
	}
	verbs := make([]string, 0, len(seen))
	for v := range seen {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

func leadingWord(name string) string {
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			return strings.ToLower(name[:i])
		}
	}
	return strings.ToLower(name)
}

// primitiveTypes covers the language-agnostic primitive spellings front ends
// emit.
var primitiveTypes = map[string]bool{
	"string": true, "int": true, "int32": true, "int64": true, "long": true,
	"float": true, "float32": true, "float64": true, "double": true,
	"decimal": true, "bigdecimal": true, "number": true,
	"bool": true, "boolean": true, "byte": true, "char": true, "uint": true,
	"uint32": true, "uint64": true,
}

// isPrimitiveType reports whether a declared type is primitive: in the known
// set and not resolving to a graph symbol.
func isPrimitiveType(declared string, g *symbol.Graph) bool {
	t := strings.TrimLeft(declared, "*&")
	t = strings.TrimPrefix(t, "[]")
	if _, ok := g.Resolve(t); ok {
		return false
	}
	return primitiveTypes[strings.ToLower(t)]
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	var out []string
	for _, x := range b {
		if set[x] {
			out = append(out, x)
		}
	}
	sort.Strings(out)
	return out
}

func appendUnique(ids []symbol.ID, add ...symbol.ID) []symbol.ID {
	for _, id := range add {
		found := false
		for _, existing := range ids {
			if existing == id {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, id)
		}
	}
	return ids
}

func fieldByLower(s *symbol.Symbol, lower string) string {
	for _, f := range s.Fields {
		if strings.ToLower(f.Name) == lower {
			return f.Name
		}
	}
	return ""
}

func signatureMentions(sig, name string) bool {
	tokens := strings.FieldsFunc(sig, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	for _, t := range tokens {
		if t == name {
			return true
		}
	}
	return false
}
