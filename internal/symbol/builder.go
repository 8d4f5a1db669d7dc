package symbol

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Builder turns per-file source units into a normalized symbol graph.
//
// Units are processed independently across a bounded worker pool; each worker
// builds a local partial result with no shared mutable state. A single
// sequential merge barrier then assembles the final graph in unit-path order,
// so graph contents are deterministic regardless of worker scheduling.
type Builder struct {
	workers     int
	unitTimeout time.Duration
	log         *zap.Logger
	extract     func(SourceUnit) ([]*Symbol, error) // swapped in tests to simulate slow units
}

// NewBuilder creates a builder. workers <= 0 falls back to 1;
// unitTimeout <= 0 disables the per-unit timeout.
func NewBuilder(workers int, unitTimeout time.Duration, log *zap.Logger) *Builder {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{workers: workers, unitTimeout: unitTimeout, log: log, extract: extractDecls}
}

// unitResult is a worker's local partial output for one unit.
type unitResult struct {
	index   int
	symbols []*Symbol
	skipped *SkippedUnit
	done    bool
}

// Build extracts symbols from all units and derives relationship edges.
//
// Recoverable failures (unparseable unit, per-unit timeout) degrade the unit
// to Skipped and the run continues. Whole-run cancellation returns the graph
// covering only the units finished so far together with ctx.Err(); the caller
// marks the resulting report incomplete.
func (b *Builder) Build(ctx context.Context, units []SourceUnit) (*Graph, error) {
	start := time.Now()
	results := make([]unitResult, len(units))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(b.workers)

	for i := range units {
		i := i
		grp.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = b.extractUnit(gctx, i, units[i])
			return nil
		})
	}
	runErr := grp.Wait()

	// Merge barrier: single sequential pass in unit order.
	g := NewGraph()
	for _, res := range results {
		if !res.done {
			continue // unfinished under cancellation; not part of the graph
		}
		if res.skipped != nil {
			g.AddSkipped(*res.skipped)
			continue
		}
		for _, s := range res.symbols {
			g.Add(s)
		}
	}
	b.deriveRelations(g)

	b.log.Debug("symbol graph built",
		zap.Int("units", len(units)),
		zap.Int("symbols", g.Len()),
		zap.Int("skipped", len(g.skipped)),
		zap.Duration("elapsed", time.Since(start)))

	if runErr != nil {
		return g, runErr
	}
	return g, nil
}

// extractUnit converts one unit into symbols, bounded by the unit timeout.
func (b *Builder) extractUnit(ctx context.Context, index int, unit SourceUnit) unitResult {
	if unit.ParseError != "" {
		return unitResult{
			index:   index,
			skipped: &SkippedUnit{Path: unit.Path, Reason: "unparseable: " + unit.ParseError},
			done:    true,
		}
	}

	type extracted struct {
		symbols []*Symbol
		err     error
	}
	ch := make(chan extracted, 1)
	go func() {
		syms, err := b.extract(unit)
		ch <- extracted{symbols: syms, err: err}
	}()

	var timeout <-chan time.Time
	if b.unitTimeout > 0 {
		t := time.NewTimer(b.unitTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case out := <-ch:
		if out.err != nil {
			b.log.Warn("unit skipped", zap.String("path", unit.Path), zap.Error(out.err))
			return unitResult{
				index:   index,
				skipped: &SkippedUnit{Path: unit.Path, Reason: out.err.Error()},
				done:    true,
			}
		}
		return unitResult{index: index, symbols: out.symbols, done: true}
	case <-timeout:
		b.log.Warn("unit timed out", zap.String("path", unit.Path), zap.Duration("timeout", b.unitTimeout))
		return unitResult{
			index:   index,
			skipped: &SkippedUnit{Path: unit.Path, Reason: fmt.Sprintf("timeout after %s", b.unitTimeout)},
			done:    true,
		}
	case <-ctx.Done():
		return unitResult{index: index}
	}
}

// extractDecls normalizes a unit's declarations into symbols.
func extractDecls(unit SourceUnit) ([]*Symbol, error) {
	if unit.Path == "" {
		return nil, fmt.Errorf("unparseable: unit has no path")
	}
	symbols := make([]*Symbol, 0, len(unit.Decls))
	for _, d := range unit.Decls {
		if d.Name == "" {
			return nil, fmt.Errorf("unparseable: unnamed declaration in %s", unit.Path)
		}
		if !d.Kind.Valid() {
			return nil, fmt.Errorf("unparseable: unknown declaration kind %q for %s", d.Kind, d.Name)
		}
		fields := make([]Field, len(d.Fields))
		copy(fields, d.Fields)
		methods := make([]Method, len(d.Methods))
		copy(methods, d.Methods)
		bases := make([]string, len(d.BaseTypes))
		copy(bases, d.BaseTypes)
		symbols = append(symbols, &Symbol{
			ID:        MakeID(unit.Path, d.Name),
			Name:      d.Name,
			Kind:      d.Kind,
			Fields:    fields,
			Methods:   methods,
			BaseTypes: bases,
			Origin:    unit.Path,
		})
	}
	return symbols, nil
}

// deriveRelations walks the merged graph once and emits edges. Runs after
// the merge barrier so every cross-unit type name can resolve.
func (b *Builder) deriveRelations(g *Graph) {
	for _, s := range g.Symbols() {
		for _, f := range s.Fields {
			if rel, ok := relationForField(g, s, f); ok {
				g.AddRelation(rel)
			}
		}
	}
	// Inheritance edges come from declared base types.
	for _, s := range g.Symbols() {
		for _, base := range s.BaseTypes {
			if target, ok := g.Resolve(base); ok && target != s.ID {
				g.AddRelation(Relationship{
					From:        s.ID,
					To:          target,
					Kind:        RelationInheritance,
					Cardinality: CardinalityOne,
				})
			}
		}
	}
}

// relationForField classifies the edge a field induces, if any.
func relationForField(g *Graph, s *Symbol, f Field) (Relationship, bool) {
	base, many, byRef := splitTypeMarkers(f.Type)
	card := CardinalityOne
	if many {
		card = CardinalityMany
	}

	// Identity reference: field shaped like <Name>Id pointing at another symbol.
	if refName, ok := identityRefTarget(f.Name); ok {
		if target, found := g.Resolve(refName); found && target != s.ID {
			return Relationship{From: s.ID, To: target, Kind: RelationIdentity, Cardinality: card, Via: f.Name}, true
		}
	}

	target, found := g.Resolve(base)
	if !found || target == s.ID {
		return Relationship{}, false
	}
	kind := RelationComposition
	if byRef {
		kind = RelationReference
	}
	return Relationship{From: s.ID, To: target, Kind: kind, Cardinality: card, Via: f.Name}, true
}

// identityRefTarget extracts the referenced symbol name from an identity
// shaped field name such as "customerId" or "CustomerID".
func identityRefTarget(fieldName string) (string, bool) {
	var stem string
	switch {
	case strings.HasSuffix(fieldName, "ID"):
		stem = strings.TrimSuffix(fieldName, "ID")
	case strings.HasSuffix(fieldName, "Id"):
		stem = strings.TrimSuffix(fieldName, "Id")
	default:
		return "", false
	}
	if stem == "" {
		return "", false
	}
	return strings.ToUpper(stem[:1]) + stem[1:], true
}

// splitTypeMarkers strips collection and reference markers from a declared
// type: "[]OrderItem" -> many, "*Customer" -> by-reference,
// "map[string]Item" -> many values of Item.
func splitTypeMarkers(declared string) (base string, many, byRef bool) {
	t := strings.TrimSpace(declared)
	for {
		switch {
		case strings.HasPrefix(t, "[]"):
			many = true
			t = t[2:]
		case strings.HasPrefix(t, "map["):
			many = true
			if i := strings.Index(t, "]"); i >= 0 {
				t = t[i+1:]
			} else {
				return t, many, byRef
			}
		case strings.HasPrefix(t, "*") || strings.HasPrefix(t, "&"):
			byRef = true
			t = t[1:]
		default:
			// Drop package qualifiers: "domain.Customer" -> "Customer".
			if i := strings.LastIndex(t, "."); i >= 0 {
				t = t[i+1:]
			}
			return t, many, byRef
		}
	}
}
