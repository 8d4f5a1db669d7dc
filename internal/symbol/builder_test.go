package symbol

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func orderUnits() []SourceUnit {
	return []SourceUnit{
		{
			Path:     "src/order.go",
			Language: "go",
			Decls: []RawDecl{
				{
					Name: "Order",
					Kind: KindClass,
					Fields: []Field{
						{Name: "id", Type: "string"},
						{Name: "items", Type: "[]OrderItem"},
						{Name: "customerId", Type: "string"},
					},
					Methods: []Method{
						{Name: "confirm", Signature: "confirm()", Visibility: VisibilityPublic},
					},
				},
				{
					Name: "OrderItem",
					Kind: KindClass,
					Fields: []Field{
						{Name: "id", Type: "string"},
						{Name: "quantity", Type: "int"},
					},
				},
			},
		},
		{
			Path:     "src/customer.go",
			Language: "go",
			Decls: []RawDecl{
				{
					Name: "Customer",
					Kind: KindClass,
					Fields: []Field{
						{Name: "id", Type: "string"},
						{Name: "billing", Type: "*Address"},
					},
				},
				{
					Name: "Address",
					Kind: KindClass,
					Fields: []Field{
						{Name: "street", Type: "string", ReadOnly: true},
					},
				},
			},
		},
	}
}

func TestBuildExtractsSymbols(t *testing.T) {
	b := NewBuilder(4, 0, nil)
	g, err := b.Build(context.Background(), orderUnits())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if g.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", g.Len())
	}
	order := g.Symbol("src/order.go#Order")
	if order == nil {
		t.Fatal("Order symbol missing")
	}
	if order.Origin != "src/order.go" {
		t.Errorf("Origin = %q", order.Origin)
	}
}

func TestBuildDerivesRelations(t *testing.T) {
	b := NewBuilder(1, 0, nil)
	g, err := b.Build(context.Background(), orderUnits())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	byKey := make(map[string]Relationship)
	for _, r := range g.Relations() {
		byKey[r.Key()] = r
	}

	tests := []struct {
		name string
		key  string
		via  string
	}{
		{
			name: "collection field is composition with many cardinality",
			key:  "src/order.go#Order->src/order.go#OrderItem[composition/many]",
			via:  "items",
		},
		{
			name: "id-shaped field is association by identity",
			key:  "src/order.go#Order->src/customer.go#Customer[association_by_identity/one]",
			via:  "customerId",
		},
		{
			name: "pointer field is association by reference",
			key:  "src/customer.go#Customer->src/customer.go#Address[association_by_reference/one]",
			via:  "billing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := byKey[tt.key]
			if !ok {
				t.Fatalf("edge %q not derived; have %v", tt.key, keys(byKey))
			}
			if r.Via != tt.via {
				t.Errorf("Via = %q, want %q", r.Via, tt.via)
			}
		})
	}
}

func keys(m map[string]Relationship) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestBuildInheritanceEdges(t *testing.T) {
	units := []SourceUnit{{
		Path: "src/events.go",
		Decls: []RawDecl{
			{Name: "DomainEvent", Kind: KindClass},
			{Name: "OrderPlacedEvent", Kind: KindClass, BaseTypes: []string{"DomainEvent"}},
		},
	}}
	b := NewBuilder(1, 0, nil)
	g, err := b.Build(context.Background(), units)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	rels := g.RelationsFrom("src/events.go#OrderPlacedEvent")
	if len(rels) != 1 || rels[0].Kind != RelationInheritance {
		t.Fatalf("expected one inheritance edge, got %v", rels)
	}
}

func TestBuildSkipsUnparseableUnit(t *testing.T) {
	units := append(orderUnits(), SourceUnit{
		Path:       "src/broken.go",
		ParseError: "unexpected token at line 3",
	})
	b := NewBuilder(4, 0, nil)
	g, err := b.Build(context.Background(), units)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if g.Len() != 4 {
		t.Errorf("healthy units should survive a broken sibling, Len() = %d", g.Len())
	}
	skipped := g.Skipped()
	if len(skipped) != 1 {
		t.Fatalf("Skipped() = %v, want one entry", skipped)
	}
	if skipped[0].Path != "src/broken.go" || !strings.HasPrefix(skipped[0].Reason, "unparseable:") {
		t.Errorf("unexpected skip record %+v", skipped[0])
	}
}

func TestBuildSkipsInvalidDecl(t *testing.T) {
	units := []SourceUnit{
		{Path: "src/a.go", Decls: []RawDecl{{Name: "", Kind: KindClass}}},
		{Path: "src/b.go", Decls: []RawDecl{{Name: "Thing", Kind: Kind("module")}}},
		{Path: "src/c.go", Decls: []RawDecl{{Name: "Good", Kind: KindClass}}},
	}
	b := NewBuilder(2, 0, nil)
	g, err := b.Build(context.Background(), units)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
	if len(g.Skipped()) != 2 {
		t.Errorf("Skipped() = %v, want two entries", g.Skipped())
	}
}

func TestBuildTimesOutSlowUnit(t *testing.T) {
	b := NewBuilder(2, 20*time.Millisecond, nil)
	b.extract = func(u SourceUnit) ([]*Symbol, error) {
		if u.Path == "src/slow.go" {
			time.Sleep(300 * time.Millisecond)
		}
		return extractDecls(u)
	}

	units := append(orderUnits(), SourceUnit{
		Path:  "src/slow.go",
		Decls: []RawDecl{{Name: "Ledger", Kind: KindClass}},
	})
	g, err := b.Build(context.Background(), units)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if g.Len() != 4 {
		t.Errorf("healthy units should survive a slow sibling, Len() = %d", g.Len())
	}
	skipped := g.Skipped()
	if len(skipped) != 1 {
		t.Fatalf("Skipped() = %v, want one entry", skipped)
	}
	if skipped[0].Path != "src/slow.go" || !strings.HasPrefix(skipped[0].Reason, "timeout after") {
		t.Errorf("unexpected skip record %+v", skipped[0])
	}
	if g.Symbol("src/slow.go#Ledger") != nil {
		t.Error("timed-out unit must contribute no symbols")
	}
}

func TestBuildCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(2, 0, nil)
	g, err := b.Build(ctx, orderUnits())
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if g == nil {
		t.Fatal("cancellation must still return the partial graph")
	}
	// Nothing finished under a pre-cancelled context.
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

func TestBuildDeterministic(t *testing.T) {
	units := orderUnits()
	build := func(workers int) (symbols []*Symbol, relations []Relationship) {
		b := NewBuilder(workers, time.Second, nil)
		g, err := b.Build(context.Background(), units)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		return g.Symbols(), g.Relations()
	}

	wantSyms, wantRels := build(1)
	for _, workers := range []int{2, 4, 8} {
		syms, rels := build(workers)
		if diff := cmp.Diff(wantSyms, syms); diff != "" {
			t.Errorf("symbols differ with %d workers (-want +got):\n%s", workers, diff)
		}
		if diff := cmp.Diff(wantRels, rels); diff != "" {
			t.Errorf("relations differ with %d workers (-want +got):\n%s", workers, diff)
		}
	}
}

func TestSplitTypeMarkers(t *testing.T) {
	tests := []struct {
		declared string
		base     string
		many     bool
		byRef    bool
	}{
		{"OrderItem", "OrderItem", false, false},
		{"[]OrderItem", "OrderItem", true, false},
		{"*Customer", "Customer", false, true},
		{"[]*Customer", "Customer", true, true},
		{"map[string]Item", "Item", true, false},
		{"domain.Customer", "Customer", false, false},
	}
	for _, tt := range tests {
		base, many, byRef := splitTypeMarkers(tt.declared)
		if base != tt.base || many != tt.many || byRef != tt.byRef {
			t.Errorf("splitTypeMarkers(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tt.declared, base, many, byRef, tt.base, tt.many, tt.byRef)
		}
	}
}

func TestIdentityRefTarget(t *testing.T) {
	tests := []struct {
		field string
		want  string
		ok    bool
	}{
		{"customerId", "Customer", true},
		{"CustomerID", "Customer", true},
		{"id", "", false},
		{"quantity", "", false},
		{"Id", "", false},
	}
	for _, tt := range tests {
		got, ok := identityRefTarget(tt.field)
		if got != tt.want || ok != tt.ok {
			t.Errorf("identityRefTarget(%q) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.ok)
		}
	}
}
