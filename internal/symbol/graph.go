package symbol

import (
	"sort"
)

// Graph is the arena of symbols plus relationship edges for one run.
// Symbols are owned by the arena and addressed by ID; iteration order is
// always sorted by ID so repeated runs over identical input are
// byte-identical.
//
// A Graph is mutable while the builder assembles it and must be treated as a
// read-only snapshot afterwards; the classifier and detector only read it.
type Graph struct {
	symbols   map[ID]*Symbol
	byName    map[string][]ID
	relations []Relationship
	skipped   []SkippedUnit
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		symbols: make(map[ID]*Symbol),
		byName:  make(map[string][]ID),
	}
}

// Add inserts a symbol into the arena. Later inserts with the same ID win;
// the builder's sequential merge makes that ordering deterministic.
func (g *Graph) Add(s *Symbol) {
	if _, exists := g.symbols[s.ID]; !exists {
		g.byName[s.Name] = append(g.byName[s.Name], s.ID)
	}
	g.symbols[s.ID] = s
}

// Symbol returns the symbol with the given ID, or nil.
func (g *Graph) Symbol(id ID) *Symbol {
	return g.symbols[id]
}

// Resolve maps a declared type name to a symbol ID. Collisions across files
// resolve to the lowest ID so resolution is deterministic.
func (g *Graph) Resolve(name string) (ID, bool) {
	ids := g.byName[name]
	if len(ids) == 0 {
		return "", false
	}
	min := ids[0]
	for _, id := range ids[1:] {
		if id < min {
			min = id
		}
	}
	return min, true
}

// Len returns the number of symbols in the arena.
func (g *Graph) Len() int {
	return len(g.symbols)
}

// Symbols returns all symbols sorted by ID.
func (g *Graph) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(g.symbols))
	for _, s := range g.symbols {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddRelation appends a relationship edge.
func (g *Graph) AddRelation(r Relationship) {
	g.relations = append(g.relations, r)
}

// Relations returns all edges sorted by their stable key.
func (g *Graph) Relations() []Relationship {
	out := make([]Relationship, len(g.relations))
	copy(out, g.relations)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// RelationsFrom returns outbound edges of a symbol, sorted.
func (g *Graph) RelationsFrom(id ID) []Relationship {
	var out []Relationship
	for _, r := range g.relations {
		if r.From == id {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// RelationsTo returns inbound edges of a symbol, sorted.
func (g *Graph) RelationsTo(id ID) []Relationship {
	var out []Relationship
	for _, r := range g.relations {
		if r.To == id {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// AddSkipped records a unit excluded from the graph.
func (g *Graph) AddSkipped(u SkippedUnit) {
	g.skipped = append(g.skipped, u)
}

// Skipped returns the excluded units sorted by path.
func (g *Graph) Skipped() []SkippedUnit {
	out := make([]SkippedUnit, len(g.skipped))
	copy(out, g.skipped)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ComposerOf returns the IDs of symbols that compose id (inbound
// composition edges), sorted.
func (g *Graph) ComposerOf(id ID) []ID {
	var out []ID
	for _, r := range g.relations {
		if r.To == id && r.Kind == RelationComposition {
			out = append(out, r.From)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OwningRoot walks inbound composition edges up to the topmost composer.
// Returns id itself when nothing composes it. Cycles terminate at the first
// revisited node.
func (g *Graph) OwningRoot(id ID) ID {
	seen := map[ID]bool{id: true}
	cur := id
	for {
		composers := g.ComposerOf(cur)
		if len(composers) == 0 {
			return cur
		}
		next := composers[0]
		if seen[next] {
			return cur
		}
		seen[next] = true
		cur = next
	}
}
