// Package symbol defines the normalized symbol model: typed declarations
// extracted from source units, the relationship edges between them, and the
// arena-style graph that owns both.
//
// Symbols are addressed by stable ID everywhere; edges are ID pairs, never
// embedded references, so cyclic relationship graphs carry no ownership
// cycles.
package symbol

import (
	"fmt"
	"strings"
)

// Kind is the declaration kind of a symbol.
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
)

// Valid reports whether k is a recognized declaration kind.
func (k Kind) Valid() bool {
	switch k {
	case KindClass, KindInterface, KindEnum:
		return true
	}
	return false
}

// Visibility of a method.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ID is the stable symbol identity: origin path plus fully-qualified name.
// Baselines match symbols across runs by this ID.
type ID string

// MakeID builds the stable ID for a declaration.
func MakeID(path, name string) ID {
	return ID(path + "#" + name)
}

// Name returns the declaration name portion of the ID.
func (id ID) Name() string {
	if i := strings.LastIndex(string(id), "#"); i >= 0 {
		return string(id)[i+1:]
	}
	return string(id)
}

// Field is a declared field of a symbol.
type Field struct {
	Name string `json:"name"`
	// Type is the declared type as written, including markers the builder
	// understands: leading "*" for references, leading "[]" for collections,
	// "map[" for keyed collections.
	Type string `json:"type"`
	// ReadOnly marks fields the front end determined immutable
	// (final/readonly declarations, or unexported Go fields with no setter).
	ReadOnly bool `json:"read_only"`
}

// Method is a declared method of a symbol.
type Method struct {
	Name       string     `json:"name"`
	Signature  string     `json:"signature"`
	Visibility Visibility `json:"visibility"`
}

// RawDecl is a single pre-parsed declaration inside a SourceUnit. This is
// the "parsed-declaration handle" the engine consumes: parsing itself is the
// front end's job.
type RawDecl struct {
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Fields    []Field  `json:"fields,omitempty"`
	Methods   []Method `json:"methods,omitempty"`
	BaseTypes []string `json:"base_types,omitempty"`
}

// SourceUnit is one scanned file with its pre-parsed declarations.
// Units are created per scan and discarded after symbol extraction.
type SourceUnit struct {
	Path     string    `json:"path"`
	Language string    `json:"language"`
	Decls    []RawDecl `json:"decls"`
	// ParseError is set by the front end when the unit could not be parsed.
	// The builder degrades such units to Skipped instead of aborting the run.
	ParseError string `json:"parse_error,omitempty"`
}

// SkippedUnit records a unit excluded from the graph and why.
type SkippedUnit struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RelationKind classifies a directed edge between two symbols.
type RelationKind string

const (
	RelationComposition RelationKind = "composition"
	RelationReference   RelationKind = "association_by_reference"
	RelationIdentity    RelationKind = "association_by_identity"
	RelationInheritance RelationKind = "inheritance"
)

// Cardinality of a relationship edge.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// Relationship is a directed edge between two symbols, stored as ID pairs.
type Relationship struct {
	From        ID           `json:"from"`
	To          ID           `json:"to"`
	Kind        RelationKind `json:"kind"`
	Cardinality Cardinality  `json:"cardinality"`
	// Via names the field that induced the edge, for evidence reporting.
	Via string `json:"via,omitempty"`
}

// Key renders a stable textual form of the edge, used for set diffing.
func (r Relationship) Key() string {
	return fmt.Sprintf("%s->%s[%s/%s]", r.From, r.To, r.Kind, r.Cardinality)
}

// Symbol is a normalized type-like declaration. It persists for the run.
type Symbol struct {
	ID        ID       `json:"id"`
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Fields    []Field  `json:"fields,omitempty"`
	Methods   []Method `json:"methods,omitempty"`
	BaseTypes []string `json:"base_types,omitempty"`
	Origin    string   `json:"origin"`
}

// HasIdentityField reports whether the symbol declares an identity field:
// a field named "id", or "<SymbolName>Id"/"<SymbolName>ID".
func (s *Symbol) HasIdentityField() bool {
	return s.IdentityField() != ""
}

// IdentityField returns the name of the symbol's identity field, or "".
func (s *Symbol) IdentityField() string {
	lowerName := strings.ToLower(s.Name)
	for _, f := range s.Fields {
		lf := strings.ToLower(f.Name)
		if lf == "id" || lf == lowerName+"id" || lf == "identifier" {
			return f.Name
		}
	}
	return ""
}

// Field returns the named field, or nil.
func (s *Symbol) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Method returns the named method, or nil.
func (s *Symbol) Method(name string) *Method {
	for i := range s.Methods {
		if s.Methods[i].Name == name {
			return &s.Methods[i]
		}
	}
	return nil
}
