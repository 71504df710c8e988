package schema

import (
	"fmt"
	"slices"
)

// Record is a dynamic entity instance for types that have no Go struct, such as
// those declared in a definition file. Values are kept in declaration order.
type Record struct {
	typeName string
	keys     []string
	values   map[string]any
}

// NewRecord returns an empty record of the given type.
func NewRecord(typeName string) *Record {
	return &Record{typeName: typeName, values: make(map[string]any)}
}

// Type returns the entity type name of the record.
func (r *Record) Type() string { return r.typeName }

// Get returns the value stored under name, or nil.
func (r *Record) Get(name string) any { return r.values[name] }

// Has reports whether a value was ever stored under name.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Set stores a value under name.
func (r *Record) Set(name string, value any) {
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Fields returns the stored names in first-write order.
func (r *Record) Fields() []string {
	return slices.Clone(r.keys)
}

// Clone returns a shallow copy; collection values get their own slice.
func (r *Record) Clone() *Record {
	dup := &Record{
		typeName: r.typeName,
		keys:     slices.Clone(r.keys),
		values:   make(map[string]any, len(r.values)),
	}
	for k, v := range r.values {
		if s, ok := v.([]any); ok {
			v = slices.Clone(s)
		}
		dup.values[k] = v
	}
	return dup
}

// String returns the type and field names; values are left out because records
// may reference each other in cycles.
func (r *Record) String() string {
	return fmt.Sprintf("%s%v", r.typeName, r.keys)
}

// ValueKind constrains the Go values a Record field accepts.
type ValueKind int

const (
	// AnyValue accepts every value unchanged.
	AnyValue ValueKind = iota
	// StringValue accepts strings only.
	StringValue
	// IntegerValue normalises numbers to int64.
	IntegerValue
	// FloatValue normalises numbers to float64.
	FloatValue
	// BooleanValue accepts bools only.
	BooleanValue
)

// String returns the schema keyword for the kind.
func (k ValueKind) String() string {
	switch k {
	case StringValue:
		return "string"
	case IntegerValue:
		return "integer"
	case FloatValue:
		return "float"
	case BooleanValue:
		return "boolean"
	default:
		return "any"
	}
}

func (k ValueKind) normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch k {
	case StringValue:
		if _, ok := value.(string); !ok {
			return nil, &ConversionError{Value: value, Target: "string"}
		}
	case IntegerValue:
		return ToInt64(value)
	case FloatValue:
		return ToFloat64(value)
	case BooleanValue:
		if _, ok := value.(bool); !ok {
			return nil, &ConversionError{Value: value, Target: "bool"}
		}
	}
	return value, nil
}

// RecordBuilder assembles a TypeDescriptor backed by Record instances.
type RecordBuilder struct {
	td *TypeDescriptor
}

// NewRecordType starts a Record-backed descriptor.
func NewRecordType(name, identifier string, policy GenerationPolicy) *RecordBuilder {
	return &RecordBuilder{td: &TypeDescriptor{
		Name:       name,
		Identifier: identifier,
		Generation: policy,
		New:        func() any { return NewRecord(name) },
	}}
}

// Field declares a scalar field holding values of the given kind.
func (b *RecordBuilder) Field(name string, ft FieldType, kind ValueKind) *RecordBuilder {
	typeName := b.td.Name
	b.td.Fields = append(b.td.Fields, FieldDescriptor{
		Name: name,
		Type: ft,
		Accessor: Accessor{
			Get: func(instance any) any {
				if r, ok := instance.(*Record); ok {
					return r.Get(name)
				}
				return nil
			},
			Set: func(instance any, value any) error {
				r, ok := instance.(*Record)
				if !ok {
					return &InstanceTypeError{TypeName: typeName, Instance: instance}
				}
				v, err := kind.normalize(value)
				if err != nil {
					return err
				}
				r.Set(name, v)
				return nil
			},
		},
	})
	return b
}

// ToOne declares a single-valued association.
func (b *RecordBuilder) ToOne(name, target string) *RecordBuilder {
	typeName := b.td.Name
	b.td.Associations = append(b.td.Associations, AssociationDescriptor{
		Name:        name,
		Cardinality: ToOne,
		Target:      target,
		One: Accessor{
			Get: func(instance any) any {
				if r, ok := instance.(*Record); ok {
					return r.Get(name)
				}
				return nil
			},
			Set: func(instance any, value any) error {
				r, ok := instance.(*Record)
				if !ok {
					return &InstanceTypeError{TypeName: typeName, Instance: instance}
				}
				r.Set(name, value)
				return nil
			},
		},
	})
	return b
}

// ToMany declares a collection-valued association stored as []any.
func (b *RecordBuilder) ToMany(name, target string) *RecordBuilder {
	typeName := b.td.Name
	b.td.Associations = append(b.td.Associations, AssociationDescriptor{
		Name:        name,
		Cardinality: ToMany,
		Target:      target,
		Many: CollectionAccessor{
			Members: func(instance any) []any {
				r, ok := instance.(*Record)
				if !ok {
					return nil
				}
				s, _ := r.Get(name).([]any)
				return slices.Clone(s)
			},
			Add: func(instance any, member any) error {
				r, ok := instance.(*Record)
				if !ok {
					return &InstanceTypeError{TypeName: typeName, Instance: instance}
				}
				s, _ := r.Get(name).([]any)
				r.Set(name, append(s, member))
				return nil
			},
		},
	})
	return b
}

// Cloneable marks the record type as duplicable.
func (b *RecordBuilder) Cloneable() *RecordBuilder {
	b.td.Clone = func(instance any) any {
		r, ok := instance.(*Record)
		if !ok {
			return nil
		}
		return r.Clone()
	}
	return b
}

// Build validates and returns the descriptor.
func (b *RecordBuilder) Build() (*TypeDescriptor, error) {
	if err := b.td.index(); err != nil {
		return nil, err
	}
	return b.td, nil
}
