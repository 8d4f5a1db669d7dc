// Package classify scores symbols against the rule registry and assigns each
// one a primary tactical-DDD role with confidence and cited evidence.
//
// Classification is embarrassingly parallel: every symbol is evaluated
// independently against a read-only graph snapshot, with no cross-symbol
// mutation. Output ordering and tie-breaking are fully deterministic, so an
// identical (registry, graph) pair always produces byte-identical results.
package classify

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dddlens/internal/config"
	"dddlens/internal/evidence"
	"dddlens/internal/rules"
	"dddlens/internal/symbol"
)

// Alternate is a losing role whose vote fell within the closeness threshold
// of the winner.
type Alternate struct {
	Role   rules.Role `json:"role"`
	Weight float64    `json:"weight"`
}

// Classification is the immutable per-symbol result. Exactly one is emitted
// per symbol per run; a rerun produces a new set, never an edit of the old.
type Classification struct {
	SymbolID   symbol.ID       `json:"symbol_id"`
	Role       rules.Role      `json:"role"`
	Confidence evidence.Level  `json:"confidence"`
	Weight     float64         `json:"weight"`
	Alternates []Alternate     `json:"alternates,omitempty"`
	// Ambiguous flags an exact tie between the top roles. Ties resolve to
	// Low confidence and are never silently dropped.
	Ambiguous bool `json:"ambiguous,omitempty"`
	// Evidence lists the fired rule IDs backing the primary role, sorted.
	Evidence  []string `json:"evidence"`
	Rationale string   `json:"rationale"`
}

// Classifier evaluates symbols against a frozen registry.
type Classifier struct {
	reg        *rules.Registry
	thresholds config.ThresholdConfig
	workers    int
	log        *zap.Logger
}

// New creates a classifier. workers <= 0 falls back to 1.
func New(reg *rules.Registry, thresholds config.ThresholdConfig, workers int, log *zap.Logger) *Classifier {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{reg: reg, thresholds: thresholds, workers: workers, log: log}
}

// Classify scores every symbol in the graph. Results come back sorted by
// symbol ID. Cancellation returns the error with no partial set; the caller
// decides how to surface incompleteness.
func (c *Classifier) Classify(ctx context.Context, g *symbol.Graph) ([]Classification, error) {
	start := time.Now()
	syms := g.Symbols()
	out := make([]Classification, len(syms))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(c.workers)
	for i := range syms {
		i := i
		grp.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			out[i] = c.classifySymbol(syms[i], g)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	c.log.Debug("classification complete",
		zap.Int("symbols", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// classifySymbol runs every rule whose predicate matches and accumulates a
// weighted vote per candidate role.
func (c *Classifier) classifySymbol(s *symbol.Symbol, g *symbol.Graph) Classification {
	votes := make(map[rules.Role]float64)
	fired := make(map[rules.Role][]string)
	for _, r := range c.reg.Rules() {
		if r.Predicate(s, g) {
			votes[r.Role] += r.Weight
			fired[r.Role] = append(fired[r.Role], r.ID)
		}
	}

	// Extract votes through the canonical role order: the winner and every
	// tie-break is independent of map iteration order.
	type scored struct {
		role   rules.Role
		weight float64
	}
	ranked := make([]scored, 0, len(votes))
	for _, role := range rules.AllRoles() {
		if w, ok := votes[role]; ok {
			ranked = append(ranked, scored{role: role, weight: w})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].role < ranked[j].role
	})

	if len(ranked) == 0 {
		// The builtin set is total, but a caller-supplied registry may not
		// be. Surface the gap as an explicitly ambiguous low-confidence
		// value object rather than an error: ambiguity is ordinary output.
		return Classification{
			SymbolID:   s.ID,
			Role:       rules.RoleValueObject,
			Confidence: evidence.LevelLow,
			Ambiguous:  true,
			Evidence:   []string{},
			Rationale:  evidence.Rationale(string(rules.RoleValueObject), nil),
		}
	}

	winner := ranked[0]
	ambiguous := len(ranked) > 1 && ranked[1].weight == winner.weight

	var alternates []Alternate
	for _, alt := range ranked[1:] {
		if winner.weight-alt.weight <= c.thresholds.Closeness {
			alternates = append(alternates, Alternate{Role: alt.role, Weight: alt.weight})
		}
	}

	conf := evidence.Discretize(winner.weight, c.thresholds.High, c.thresholds.Medium)
	if ambiguous {
		conf = evidence.LevelLow
	}

	ids := evidence.SortIDs(fired[winner.role])
	return Classification{
		SymbolID:   s.ID,
		Role:       winner.role,
		Confidence: conf,
		Weight:     winner.weight,
		Alternates: alternates,
		Ambiguous:  ambiguous,
		Evidence:   ids,
		Rationale:  evidence.Rationale(string(winner.role), ids),
	}
}

// Index builds a symbol-ID lookup over a classification set.
func Index(cls []Classification) map[symbol.ID]Classification {
	out := make(map[symbol.ID]Classification, len(cls))
	for _, c := range cls {
		out[c.SymbolID] = c
	}
	return out
}
