package schema

import (
	"fmt"
	"reflect"
)

// FieldType is the logical type of a field, which selects how raw input is coerced.
type FieldType int

const (
	// Scalar values are stored unchanged.
	Scalar FieldType = iota
	// Date values are parsed as a calendar date (2006-01-02).
	Date
	// Time values are parsed as a time of day (15:04:05).
	Time
	// DateTime values are parsed as a combined date and time (2006-01-02 15:04:05).
	DateTime
)

// String returns the schema keyword for the field type.
func (t FieldType) String() string {
	switch t {
	case Scalar:
		return "scalar"
	case Date:
		return "date"
	case Time:
		return "time"
	case DateTime:
		return "datetime"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Cardinality distinguishes single-valued from collection-valued associations.
type Cardinality int

const (
	// ToOne associations reference a single target instance.
	ToOne Cardinality = iota
	// ToMany associations hold a collection of target instances.
	ToMany
)

// String returns a readable name for the cardinality.
func (c Cardinality) String() string {
	switch c {
	case ToOne:
		return "to-one"
	case ToMany:
		return "to-many"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

// GenerationPolicy specifies who assigns identifier values.
type GenerationPolicy int

const (
	// GenerateNone means identifiers are supplied by the caller.
	GenerateNone GenerationPolicy = iota
	// Generated means identifiers are assigned by the persistence session only.
	Generated
)

// String returns a readable name for the policy.
func (p GenerationPolicy) String() string {
	if p == Generated {
		return "generated"
	}
	return "none"
}

// Accessor reads and writes a single value on an instance.
type Accessor struct {
	// Get returns the current value. Absent values are reported as untyped nil.
	Get func(instance any) any
	// Set stores a value, converting it to the field's Go type where needed.
	Set func(instance any, value any) error
}

// CollectionAccessor reads and appends to a collection-valued association.
type CollectionAccessor struct {
	// Members returns the current members in order.
	Members func(instance any) []any
	// Add appends one member.
	Add func(instance any, member any) error
}

// FieldDescriptor describes a scalar field.
type FieldDescriptor struct {
	// Name is the internal (camelCase) field name.
	Name string
	// Type is the logical type used for input coercion.
	Type FieldType
	// Accessor reads and writes the field directly.
	Accessor Accessor
	// Setter, when non-nil, replaces the direct write. It is called for every
	// incoming value and is responsible for its own change tracking.
	Setter func(instance any, value any) error
}

// AssociationDescriptor describes a relationship to another entity type.
type AssociationDescriptor struct {
	// Name is the internal (camelCase) association name.
	Name string
	// Cardinality is ToOne or ToMany.
	Cardinality Cardinality
	// Target is the name of the associated entity type.
	Target string
	// One is used for ToOne associations.
	One Accessor
	// Many is used for ToMany associations.
	Many CollectionAccessor
}

// TypeDescriptor is the complete, immutable description of an entity type.
type TypeDescriptor struct {
	// Name is the entity type name used for lookups.
	Name string
	// Identifier is the name of the identifier field.
	Identifier string
	// Generation is the identifier generation policy.
	Generation GenerationPolicy
	// Fields lists the scalar fields, including the identifier.
	Fields []FieldDescriptor
	// Associations lists the relationships to other types.
	Associations []AssociationDescriptor
	// New allocates a bare instance.
	New func() any
	// Clone duplicates an instance. A nil Clone marks the type as not cloneable.
	Clone func(instance any) any
	// GoType is the struct type backing the entity, or nil for Record types.
	GoType reflect.Type

	fields map[string]int
	assocs map[string]int
}

// Field retrieves a FieldDescriptor by internal name.
func (t *TypeDescriptor) Field(name string) (*FieldDescriptor, bool) {
	i, ok := t.fields[name]
	if !ok {
		return nil, false
	}
	return &t.Fields[i], true
}

// Association retrieves an AssociationDescriptor by internal name.
func (t *TypeDescriptor) Association(name string) (*AssociationDescriptor, bool) {
	i, ok := t.assocs[name]
	if !ok {
		return nil, false
	}
	return &t.Associations[i], true
}

// IdentifierField returns the descriptor of the identifier field.
func (t *TypeDescriptor) IdentifierField() *FieldDescriptor {
	fd, _ := t.Field(t.Identifier)
	return fd
}

// IdentifierValue returns the identifier of instance, or nil when unset.
func (t *TypeDescriptor) IdentifierValue(instance any) any {
	fd := t.IdentifierField()
	if fd == nil {
		return nil
	}
	v := fd.Accessor.Get(instance)
	if IsZero(v) {
		return nil
	}
	return v
}

// Cloneable reports whether instances of the type can be duplicated.
func (t *TypeDescriptor) Cloneable() bool {
	return t.Clone != nil
}

// index validates the descriptor and builds its name lookups.
func (t *TypeDescriptor) index() error {
	if t.Name == "" {
		return &SchemaValidationError{TypeName: t.Name, Message: "type name is empty"}
	}
	if t.New == nil {
		return &SchemaValidationError{TypeName: t.Name, Message: "no constructor"}
	}
	t.fields = make(map[string]int, len(t.Fields))
	t.assocs = make(map[string]int, len(t.Associations))
	for i, f := range t.Fields {
		if f.Name == "" {
			return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("field %d has no name", i)}
		}
		if _, dup := t.fields[f.Name]; dup {
			return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("duplicate field %q", f.Name)}
		}
		if f.Accessor.Get == nil || f.Accessor.Set == nil {
			return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("field %q has no accessor", f.Name)}
		}
		t.fields[f.Name] = i
	}
	for i, a := range t.Associations {
		if _, dup := t.fields[a.Name]; dup {
			return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("association %q shadows a field", a.Name)}
		}
		if _, dup := t.assocs[a.Name]; dup {
			return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("duplicate association %q", a.Name)}
		}
		if a.Target == "" {
			return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("association %q has no target", a.Name)}
		}
		switch a.Cardinality {
		case ToOne:
			if a.One.Get == nil || a.One.Set == nil {
				return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("association %q has no accessor", a.Name)}
			}
		case ToMany:
			if a.Many.Members == nil || a.Many.Add == nil {
				return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("association %q has no collection accessor", a.Name)}
			}
		default:
			return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("association %q has invalid cardinality", a.Name)}
		}
		t.assocs[a.Name] = i
	}
	if t.Identifier == "" {
		return &SchemaValidationError{TypeName: t.Name, Message: "no identifier field"}
	}
	if _, ok := t.fields[t.Identifier]; !ok {
		return &SchemaValidationError{TypeName: t.Name, Message: fmt.Sprintf("identifier %q is not a declared field", t.Identifier)}
	}
	return nil
}

// IsZero reports whether v is nil, a nil pointer, or the zero value of its type.
func IsZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
