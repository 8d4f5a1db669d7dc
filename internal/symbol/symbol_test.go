package symbol

import (
	"testing"
)

func TestMakeIDAndName(t *testing.T) {
	id := MakeID("src/order.go", "Order")
	if id != "src/order.go#Order" {
		t.Errorf("MakeID = %q", id)
	}
	if id.Name() != "Order" {
		t.Errorf("Name() = %q", id.Name())
	}
	if ID("noseparator").Name() != "noseparator" {
		t.Error("Name() should fall back to the whole ID")
	}
}

func TestIdentityField(t *testing.T) {
	tests := []struct {
		name   string
		sym    Symbol
		wantID string
	}{
		{
			name:   "plain id",
			sym:    Symbol{Name: "Order", Fields: []Field{{Name: "id", Type: "string"}}},
			wantID: "id",
		},
		{
			name:   "name-prefixed id",
			sym:    Symbol{Name: "Order", Fields: []Field{{Name: "orderId", Type: "string"}}},
			wantID: "orderId",
		},
		{
			name:   "uppercase variant",
			sym:    Symbol{Name: "Order", Fields: []Field{{Name: "OrderID", Type: "string"}}},
			wantID: "OrderID",
		},
		{
			name:   "identifier spelling",
			sym:    Symbol{Name: "Order", Fields: []Field{{Name: "identifier", Type: "string"}}},
			wantID: "identifier",
		},
		{
			name:   "foreign id is not identity",
			sym:    Symbol{Name: "Order", Fields: []Field{{Name: "customerId", Type: "string"}}},
			wantID: "",
		},
		{
			name:   "no fields",
			sym:    Symbol{Name: "Order"},
			wantID: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sym.IdentityField(); got != tt.wantID {
				t.Errorf("IdentityField() = %q, want %q", got, tt.wantID)
			}
			if tt.sym.HasIdentityField() != (tt.wantID != "") {
				t.Errorf("HasIdentityField() inconsistent with IdentityField()")
			}
		})
	}
}

func TestRelationshipKeyStable(t *testing.T) {
	r := Relationship{
		From:        "a.go#Order",
		To:          "a.go#OrderItem",
		Kind:        RelationComposition,
		Cardinality: CardinalityMany,
		Via:         "items",
	}
	want := "a.go#Order->a.go#OrderItem[composition/many]"
	if r.Key() != want {
		t.Errorf("Key() = %q, want %q", r.Key(), want)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindClass, KindInterface, KindEnum} {
		if !k.Valid() {
			t.Errorf("%v should be valid", k)
		}
	}
	if Kind("module").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
