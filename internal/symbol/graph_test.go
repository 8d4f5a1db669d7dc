package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphSymbolsSortedByID(t *testing.T) {
	g := NewGraph()
	g.Add(&Symbol{ID: "b.go#Zeta", Name: "Zeta", Kind: KindClass})
	g.Add(&Symbol{ID: "a.go#Alpha", Name: "Alpha", Kind: KindClass})
	g.Add(&Symbol{ID: "a.go#Beta", Name: "Beta", Kind: KindClass})

	syms := g.Symbols()
	assert.Len(t, syms, 3)
	assert.Equal(t, ID("a.go#Alpha"), syms[0].ID)
	assert.Equal(t, ID("a.go#Beta"), syms[1].ID)
	assert.Equal(t, ID("b.go#Zeta"), syms[2].ID)
}

func TestGraphResolveCollision(t *testing.T) {
	g := NewGraph()
	g.Add(&Symbol{ID: "z.go#Order", Name: "Order", Kind: KindClass})
	g.Add(&Symbol{ID: "a.go#Order", Name: "Order", Kind: KindClass})

	id, ok := g.Resolve("Order")
	assert.True(t, ok)
	assert.Equal(t, ID("a.go#Order"), id, "collisions resolve to the lowest ID")

	_, ok = g.Resolve("Nothing")
	assert.False(t, ok)
}

func TestGraphRelationsSorted(t *testing.T) {
	g := NewGraph()
	g.AddRelation(Relationship{From: "b#X", To: "b#Y", Kind: RelationReference, Cardinality: CardinalityOne})
	g.AddRelation(Relationship{From: "a#X", To: "a#Y", Kind: RelationComposition, Cardinality: CardinalityOne})

	rels := g.Relations()
	assert.Equal(t, ID("a#X"), rels[0].From)
	assert.Equal(t, ID("b#X"), rels[1].From)

	from := g.RelationsFrom("a#X")
	assert.Len(t, from, 1)
	to := g.RelationsTo("b#Y")
	assert.Len(t, to, 1)
}

func TestOwningRoot(t *testing.T) {
	g := NewGraph()
	// Order composes OrderItem composes Discount.
	g.AddRelation(Relationship{From: "a#Order", To: "a#OrderItem", Kind: RelationComposition, Cardinality: CardinalityMany})
	g.AddRelation(Relationship{From: "a#OrderItem", To: "a#Discount", Kind: RelationComposition, Cardinality: CardinalityOne})

	assert.Equal(t, ID("a#Order"), g.OwningRoot("a#Discount"))
	assert.Equal(t, ID("a#Order"), g.OwningRoot("a#OrderItem"))
	assert.Equal(t, ID("a#Order"), g.OwningRoot("a#Order"), "uncomposed symbol is its own root")
}

func TestOwningRootCycleTerminates(t *testing.T) {
	g := NewGraph()
	g.AddRelation(Relationship{From: "a#A", To: "a#B", Kind: RelationComposition, Cardinality: CardinalityOne})
	g.AddRelation(Relationship{From: "a#B", To: "a#A", Kind: RelationComposition, Cardinality: CardinalityOne})

	// Must not loop forever; any node on the cycle is acceptable.
	root := g.OwningRoot("a#A")
	assert.Contains(t, []ID{"a#A", "a#B"}, root)
}

func TestGraphSkippedSorted(t *testing.T) {
	g := NewGraph()
	g.AddSkipped(SkippedUnit{Path: "z.go", Reason: "timeout after 10s"})
	g.AddSkipped(SkippedUnit{Path: "a.go", Reason: "unparseable: bad token"})

	skipped := g.Skipped()
	assert.Equal(t, "a.go", skipped[0].Path)
	assert.Equal(t, "z.go", skipped[1].Path)
}
