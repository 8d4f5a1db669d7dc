package rules

import (
	"strings"

	"dddlens/internal/symbol"
)

// Builtin returns the builtin rule set in its canonical order. Weights are
// defaults; callers can retune them through ApplyOverrides.
func Builtin() []Rule {
	return []Rule{
		// --- Aggregate Root ---
		{
			ID:        "aggregate_root.identity_field",
			Role:      RoleAggregateRoot,
			Weight:    2,
			Doc:       "declares an identity field",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool { return s.HasIdentityField() },
		},
		{
			ID:     "aggregate_root.composes_entities",
			Role:   RoleAggregateRoot,
			Weight: 3,
			Doc:    "composes at least one identity-bearing child",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				for _, r := range g.RelationsFrom(s.ID) {
					if r.Kind != symbol.RelationComposition {
						continue
					}
					if child := g.Symbol(r.To); child != nil && child.HasIdentityField() {
						return true
					}
				}
				return false
			},
		},
		{
			ID:     "aggregate_root.behavioral_methods",
			Role:   RoleAggregateRoot,
			Weight: 2,
			Doc:    "has behavior beyond accessors",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return s.HasIdentityField() && BehavioralMethodCount(s) > 0
			},
		},
		{
			ID:     "aggregate_root.not_composed",
			Role:   RoleAggregateRoot,
			Weight: 2,
			Doc:    "identity-bearing symbol not owned by any composer",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return s.HasIdentityField() && len(g.ComposerOf(s.ID)) == 0
			},
		},

		// --- Entity ---
		{
			ID:        "entity.identity_field",
			Role:      RoleEntity,
			Weight:    3,
			Doc:       "declares an identity field",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool { return s.HasIdentityField() },
		},
		{
			ID:     "entity.mutable_state",
			Role:   RoleEntity,
			Weight: 2,
			Doc:    "identity plus mutable fields",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				if !s.HasIdentityField() {
					return false
				}
				for _, f := range s.Fields {
					if !f.ReadOnly {
						return true
					}
				}
				return false
			},
		},
		{
			ID:     "entity.owned_by_composer",
			Role:   RoleEntity,
			Weight: 2,
			Doc:    "identity-bearing symbol owned inside another symbol",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return s.HasIdentityField() && len(g.ComposerOf(s.ID)) > 0
			},
		},

		// --- Value Object ---
		{
			ID:     "value_object.no_identity",
			Role:   RoleValueObject,
			Weight: 1,
			Doc:    "carries state without identity",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return s.Kind == symbol.KindClass && !s.HasIdentityField()
			},
		},
		{
			ID:     "value_object.immutable_fields",
			Role:   RoleValueObject,
			Weight: 3,
			Doc:    "no identity and all fields read-only",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				if s.HasIdentityField() || len(s.Fields) == 0 {
					return false
				}
				for _, f := range s.Fields {
					if !f.ReadOnly {
						return false
					}
				}
				return true
			},
		},
		{
			ID:     "value_object.equality_method",
			Role:   RoleValueObject,
			Weight: 2,
			Doc:    "defines whole-value equality",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				if s.HasIdentityField() {
					return false
				}
				for _, m := range s.Methods {
					switch strings.ToLower(m.Name) {
					case "equals", "equal", "eq":
						return true
					}
				}
				return false
			},
		},

		// --- Domain Service ---
		{
			ID:     "domain_service.stateless",
			Role:   RoleDomainService,
			Weight: 2,
			Doc:    "stateless with behavior",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return s.Kind == symbol.KindClass && len(s.Fields) == 0 && len(s.Methods) > 0
			},
		},
		{
			ID:     "domain_service.spans_symbols",
			Role:   RoleDomainService,
			Weight: 3,
			Doc:    "operates across two or more other symbols",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return len(s.Fields) == 0 && SignatureSymbolCount(s, g) >= 2
			},
		},
		{
			ID:        "domain_service.service_suffix",
			Role:      RoleDomainService,
			Weight:    1,
			Doc:       "named like a service",
			Predicate: nameSuffixPredicate("Service"),
		},

		// --- Domain Event ---
		{
			ID:        "domain_event.event_name",
			Role:      RoleDomainEvent,
			Weight:    3,
			Doc:       "named like an event",
			Predicate: nameSuffixPredicate("Event", "Occurred", "Happened", "Raised"),
		},
		{
			ID:     "domain_event.immutable_with_timestamp",
			Role:   RoleDomainEvent,
			Weight: 2,
			Doc:    "immutable payload with a point-in-time field",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				if len(s.Fields) == 0 {
					return false
				}
				hasTime := false
				for _, f := range s.Fields {
					if !f.ReadOnly {
						return false
					}
					lname := strings.ToLower(f.Name)
					ltype := strings.ToLower(f.Type)
					if strings.Contains(lname, "timestamp") || strings.Contains(lname, "occurredat") ||
						strings.Contains(ltype, "time") || strings.Contains(ltype, "date") {
						hasTime = true
					}
				}
				return hasTime
			},
		},

		// --- Repository Interface ---
		{
			ID:     "repository.interface_name",
			Role:   RoleRepositoryInterface,
			Weight: 3,
			Doc:    "interface named like a repository",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return s.Kind == symbol.KindInterface && hasSuffix(s.Name, "Repository", "Repo", "Store")
			},
		},
		{
			ID:     "repository.persistence_verbs",
			Role:   RoleRepositoryInterface,
			Weight: 2,
			Doc:    "interface with persistence-verb methods over a symbol",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				if s.Kind != symbol.KindInterface {
					return false
				}
				verbs := 0
				for _, m := range s.Methods {
					if hasVerbPrefix(m.Name, "save", "find", "get", "load", "delete", "remove", "add", "store") {
						verbs++
					}
				}
				return verbs > 0 && SignatureSymbolCount(s, g) >= 1
			},
		},

		// --- Driven Port ---
		{
			ID:     "driven_port.port_name",
			Role:   RoleDrivenPort,
			Weight: 3,
			Doc:    "interface named like an outbound port",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return s.Kind == symbol.KindInterface &&
					hasSuffix(s.Name, "Port", "Gateway", "Publisher", "Notifier", "Sender", "Client", "Provider")
			},
		},
		{
			ID:     "driven_port.outbound_verbs",
			Role:   RoleDrivenPort,
			Weight: 2,
			Doc:    "interface with outbound-communication verbs",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				if s.Kind != symbol.KindInterface {
					return false
				}
				for _, m := range s.Methods {
					if hasVerbPrefix(m.Name, "send", "publish", "notify", "dispatch", "emit", "push") {
						return true
					}
				}
				return false
			},
		},

		// --- Factory ---
		{
			ID:        "factory.factory_name",
			Role:      RoleFactory,
			Weight:    3,
			Doc:       "named like a factory",
			Predicate: nameSuffixPredicate("Factory", "Builder"),
		},
		{
			ID:     "factory.creation_methods",
			Role:   RoleFactory,
			Weight: 2,
			Doc:    "stateless creator returning other symbols",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				if len(s.Fields) > 0 {
					return false
				}
				for _, m := range s.Methods {
					if hasVerbPrefix(m.Name, "create", "new", "build", "make") &&
						signatureMentionsSymbol(m.Signature, s, g) {
						return true
					}
				}
				return false
			},
		},

		// --- Specification ---
		{
			ID:        "specification.spec_name",
			Role:      RoleSpecification,
			Weight:    3,
			Doc:       "named like a specification",
			Predicate: nameSuffixPredicate("Specification", "Spec", "Criteria"),
		},
		{
			ID:     "specification.satisfied_by",
			Role:   RoleSpecification,
			Weight: 3,
			Doc:    "exposes an is-satisfied-by predicate method",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				for _, m := range s.Methods {
					if strings.EqualFold(m.Name, "isSatisfiedBy") || strings.EqualFold(m.Name, "satisfiedBy") {
						return true
					}
				}
				return false
			},
		},

		// --- Policy ---
		{
			ID:        "policy.policy_name",
			Role:      RolePolicy,
			Weight:    3,
			Doc:       "named like a policy or strategy",
			Predicate: nameSuffixPredicate("Policy", "Strategy"),
		},
		{
			ID:     "policy.single_decision",
			Role:   RolePolicy,
			Weight: 1,
			Doc:    "stateless single-decision shape",
			Predicate: func(s *symbol.Symbol, g *symbol.Graph) bool {
				return hasSuffix(s.Name, "Policy", "Strategy", "Rule") &&
					len(s.Fields) == 0 && len(s.Methods) == 1
			},
		},
	}
}

// nameSuffixPredicate builds a predicate matching any of the given suffixes.
func nameSuffixPredicate(suffixes ...string) Predicate {
	return func(s *symbol.Symbol, g *symbol.Graph) bool {
		return hasSuffix(s.Name, suffixes...)
	}
}

func hasSuffix(name string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

// hasVerbPrefix reports whether the method name starts with one of the
// verbs, case-insensitively, at a camelCase word boundary.
func hasVerbPrefix(name string, verbs ...string) bool {
	lower := strings.ToLower(name)
	for _, v := range verbs {
		if !strings.HasPrefix(lower, v) {
			continue
		}
		rest := name[len(v):]
		if rest == "" || rest[0] >= 'A' && rest[0] <= 'Z' || rest[0] == '_' {
			return true
		}
	}
	return false
}

// accessorPrefixes are method shapes that do not count as behavior.
var accessorPrefixes = []string{"get", "set", "is", "has"}

// IsAccessor reports whether a method is a simple accessor: a get/set/is/has
// prefixed method, a method named after a field, or common object plumbing.
// The prefix must end at a word boundary so verbs like "settle" or
// "issueStatement" still count as behavior.
func IsAccessor(s *symbol.Symbol, m symbol.Method) bool {
	switch strings.ToLower(m.Name) {
	case "equals", "equal", "hashcode", "tostring", "string", "id":
		return true
	}
	if hasVerbPrefix(m.Name, accessorPrefixes...) {
		return true
	}
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, m.Name) {
			return true
		}
	}
	return false
}

// BehavioralMethodCount counts methods beyond simple accessors.
func BehavioralMethodCount(s *symbol.Symbol) int {
	n := 0
	for _, m := range s.Methods {
		if !IsAccessor(s, m) {
			n++
		}
	}
	return n
}

// SignatureSymbolCount counts the distinct other graph symbols mentioned in
// the symbol's method signatures.
func SignatureSymbolCount(s *symbol.Symbol, g *symbol.Graph) int {
	seen := make(map[symbol.ID]bool)
	for _, m := range s.Methods {
		for _, tok := range identifierTokens(m.Signature) {
			if id, ok := g.Resolve(tok); ok && id != s.ID {
				seen[id] = true
			}
		}
	}
	return len(seen)
}

// signatureMentionsSymbol reports whether a single signature references any
// other symbol in the graph.
func signatureMentionsSymbol(sig string, s *symbol.Symbol, g *symbol.Graph) bool {
	for _, tok := range identifierTokens(sig) {
		if id, ok := g.Resolve(tok); ok && id != s.ID {
			return true
		}
	}
	return false
}

// identifierTokens splits a signature string into identifier-shaped tokens.
func identifierTokens(sig string) []string {
	return strings.FieldsFunc(sig, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}
