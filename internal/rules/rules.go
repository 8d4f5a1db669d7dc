// Package rules defines the heuristic rule registry: an ordered, immutable
// set of weighted classification predicates grouped by target role.
//
// Each heuristic is a pure predicate function over (Symbol, Graph) composed
// through the registry; there is no rule class hierarchy. The registry is
// validated eagerly at load time and is safe for unsynchronized concurrent
// reads for the rest of the run.
package rules

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"dddlens/internal/symbol"
)

// ErrInvalidRule marks registry validation failures. A malformed rule fails
// the entire run before any symbol is processed: a partially valid rule set
// would silently bias every classification.
var ErrInvalidRule = errors.New("invalid rule definition")

// Role is a tactical-DDD classification target.
type Role string

const (
	RoleAggregateRoot       Role = "aggregate_root"
	RoleEntity              Role = "entity"
	RoleValueObject         Role = "value_object"
	RoleDomainService       Role = "domain_service"
	RoleDomainEvent         Role = "domain_event"
	RoleRepositoryInterface Role = "repository_interface"
	RoleDrivenPort          Role = "driven_port"
	RoleFactory             Role = "factory"
	RoleSpecification       Role = "specification"
	RolePolicy              Role = "policy"
)

// AllRoles returns the roles in their canonical sorted order.
func AllRoles() []Role {
	return []Role{
		RoleAggregateRoot,
		RoleDomainEvent,
		RoleDomainService,
		RoleDrivenPort,
		RoleEntity,
		RoleFactory,
		RolePolicy,
		RoleRepositoryInterface,
		RoleSpecification,
		RoleValueObject,
	}
}

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	for _, role := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// Predicate is a pure heuristic over a symbol and the read-only graph
// snapshot it lives in. Predicates must not mutate either argument.
type Predicate func(sym *symbol.Symbol, g *symbol.Graph) bool

// Rule is one weighted classification heuristic.
type Rule struct {
	// ID uniquely identifies the rule and is cited in every rationale.
	ID string

	// Role is the classification target the rule votes for.
	Role Role

	// Weight is the vote contributed when the predicate matches.
	Weight float64

	// Doc is a one-line description surfaced by the rules listing.
	Doc string

	// Predicate decides whether the rule fires for a symbol.
	Predicate Predicate
}

// Registry is the ordered, immutable rule collection for a run.
type Registry struct {
	rules []Rule
	byID  map[string]int
}

// NewRegistry validates the rule set and freezes it. Validation failures
// wrap ErrInvalidRule and abort the run with no partial output.
func NewRegistry(ruleSet []Rule) (*Registry, error) {
	byID := make(map[string]int, len(ruleSet))
	for i, r := range ruleSet {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule at index %d has empty ID", ErrInvalidRule, i)
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule ID %q", ErrInvalidRule, r.ID)
		}
		if !r.Role.Valid() {
			return nil, fmt.Errorf("%w: rule %q targets unknown role %q", ErrInvalidRule, r.ID, r.Role)
		}
		if r.Weight <= 0 {
			return nil, fmt.Errorf("%w: rule %q has non-positive weight %v", ErrInvalidRule, r.ID, r.Weight)
		}
		if r.Predicate == nil {
			return nil, fmt.Errorf("%w: rule %q has nil predicate", ErrInvalidRule, r.ID)
		}
		byID[r.ID] = i
	}
	frozen := make([]Rule, len(ruleSet))
	copy(frozen, ruleSet)
	return &Registry{rules: frozen, byID: byID}, nil
}

// Rules returns a copy of the ordered rule set.
func (reg *Registry) Rules() []Rule {
	out := make([]Rule, len(reg.rules))
	copy(out, reg.rules)
	return out
}

// Rule returns the rule with the given ID.
func (reg *Registry) Rule(id string) (Rule, bool) {
	i, ok := reg.byID[id]
	if !ok {
		return Rule{}, false
	}
	return reg.rules[i], true
}

// Len returns the number of rules.
func (reg *Registry) Len() int {
	return len(reg.rules)
}

// RolesCovered returns the distinct roles the registry votes for, sorted.
func (reg *Registry) RolesCovered() []Role {
	seen := make(map[Role]bool)
	for _, r := range reg.rules {
		seen[r.Role] = true
	}
	out := make([]Role, 0, len(seen))
	for role := range seen {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// overrideFile is the YAML shape of a weight-override file:
//
//	weights:
//	  aggregate_root.identity_field: 4.0
type overrideFile struct {
	Weights map[string]float64 `yaml:"weights"`
}

// LoadOverrides reads a weight-override file.
func LoadOverrides(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule overrides: %w", err)
	}
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rule overrides: %w", err)
	}
	return f.Weights, nil
}

// ApplyOverrides returns a copy of ruleSet with weights replaced. Unknown
// rule IDs and non-positive weights are validation failures, not silent
// no-ops.
func ApplyOverrides(ruleSet []Rule, weights map[string]float64) ([]Rule, error) {
	out := make([]Rule, len(ruleSet))
	copy(out, ruleSet)
	index := make(map[string]int, len(out))
	for i, r := range out {
		index[r.ID] = i
	}
	// Apply in sorted key order for deterministic error reporting.
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, id := range keys {
		w := weights[id]
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("%w: override for unknown rule %q", ErrInvalidRule, id)
		}
		if w <= 0 {
			return nil, fmt.Errorf("%w: override for rule %q has non-positive weight %v", ErrInvalidRule, id, w)
		}
		out[i].Weight = w
	}
	return out, nil
}
