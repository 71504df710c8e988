// Package schemadsl parses textual entity definitions and registers them in a
// schema.Catalog as Record-backed types.
//
// A definition file starts with "define" and lists entities:
//
//	define
//
//	# customers own widgets
//	entity customer,
//	    field id integer @id @generated,
//	    field name string;
//
//	entity widget @cloneable,
//	    field code string @id,
//	    field made_on date,
//	    one owner customer,
//	    many tags tag;
//
// Field value types are scalar, string, integer, float, boolean, date, time and
// datetime. Member names are written in snake_case and registered in camelCase.
package schemadsl

// ParsedSchema holds the entity definitions of a definition file in source order.
type ParsedSchema struct {
	Entities []EntitySpec
}

// EntitySpec describes one entity definition.
type EntitySpec struct {
	// Name is the type name the entity is registered under.
	Name string
	// Cloneable marks the entity with @cloneable.
	Cloneable bool
	// Fields lists the scalar and temporal fields in source order.
	Fields []FieldSpec
	// Associations lists the one and many clauses in source order.
	Associations []AssociationSpec
	// Line is the source line of the definition.
	Line int
}

// FieldSpec describes a field clause.
type FieldSpec struct {
	Name      string
	ValueType string
	ID        bool
	Generated bool
}

// AssociationSpec describes a one or many clause.
type AssociationSpec struct {
	Name   string
	Target string
	Many   bool
}

// Entity returns the definition named name.
func (s *ParsedSchema) Entity(name string) (*EntitySpec, bool) {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// Identifier returns the field marked @id, or nil.
func (e *EntitySpec) Identifier() *FieldSpec {
	for i := range e.Fields {
		if e.Fields[i].ID {
			return &e.Fields[i]
		}
	}
	return nil
}
