package schema

import "reflect"

// Cloner is implemented by entity types that provide their own duplication.
type Cloner interface {
	CloneEntity() any
}

// Prop builds an Accessor from a pointer-to-field function. Values are converted
// to V on write (e.g. float64 input into an int64 field).
//
//	schema.Prop(func(w *Widget) *string { return &w.Name })
func Prop[T, V any](field func(*T) *V) Accessor {
	return Accessor{
		Get: func(instance any) any {
			t, ok := instance.(*T)
			if !ok || t == nil {
				return nil
			}
			return *field(t)
		},
		Set: func(instance any, value any) error {
			t, ok := instance.(*T)
			if !ok || t == nil {
				return &InstanceTypeError{TypeName: reflect.TypeFor[T]().Name(), Instance: instance}
			}
			v, err := Convert[V](value)
			if err != nil {
				return err
			}
			*field(t) = v
			return nil
		},
	}
}

// Ref builds a to-one Accessor from a pointer-to-pointer-field function.
//
//	schema.Ref(func(w *Widget) **Customer { return &w.Owner })
func Ref[T, U any](field func(*T) **U) Accessor {
	return Accessor{
		Get: func(instance any) any {
			t, ok := instance.(*T)
			if !ok || t == nil {
				return nil
			}
			if p := *field(t); p != nil {
				return p
			}
			return nil
		},
		Set: func(instance any, value any) error {
			t, ok := instance.(*T)
			if !ok || t == nil {
				return &InstanceTypeError{TypeName: reflect.TypeFor[T]().Name(), Instance: instance}
			}
			if value == nil {
				*field(t) = nil
				return nil
			}
			u, ok := value.(*U)
			if !ok {
				return &ConversionError{Value: value, Target: reflect.TypeFor[*U]().String()}
			}
			*field(t) = u
			return nil
		},
	}
}

// Refs builds a to-many CollectionAccessor from a pointer-to-slice-field function.
//
//	schema.Refs(func(w *Widget) *[]*Tag { return &w.Tags })
func Refs[T, U any](field func(*T) *[]*U) CollectionAccessor {
	return CollectionAccessor{
		Members: func(instance any) []any {
			t, ok := instance.(*T)
			if !ok || t == nil {
				return nil
			}
			items := *field(t)
			out := make([]any, len(items))
			for i, it := range items {
				out[i] = it
			}
			return out
		},
		Add: func(instance any, member any) error {
			t, ok := instance.(*T)
			if !ok || t == nil {
				return &InstanceTypeError{TypeName: reflect.TypeFor[T]().Name(), Instance: instance}
			}
			u, ok := member.(*U)
			if !ok {
				return &ConversionError{Value: member, Target: reflect.TypeFor[*U]().String()}
			}
			*field(t) = append(*field(t), u)
			return nil
		},
	}
}

// TypeBuilder assembles a TypeDescriptor for the struct type T without reflection
// at hydration time.
type TypeBuilder[T any] struct {
	td *TypeDescriptor
}

// NewType starts a descriptor for T registered as name, identified by the field
// named identifier.
func NewType[T any](name, identifier string, policy GenerationPolicy) *TypeBuilder[T] {
	return &TypeBuilder[T]{td: &TypeDescriptor{
		Name:       name,
		Identifier: identifier,
		Generation: policy,
		New:        func() any { return new(T) },
		GoType:     reflect.TypeFor[T](),
	}}
}

// Field declares a scalar field.
func (b *TypeBuilder[T]) Field(name string, ft FieldType, acc Accessor) *TypeBuilder[T] {
	b.td.Fields = append(b.td.Fields, FieldDescriptor{Name: name, Type: ft, Accessor: acc})
	return b
}

// WithSetter routes writes of an already declared field through setter.
func (b *TypeBuilder[T]) WithSetter(name string, setter func(*T, any) error) *TypeBuilder[T] {
	for i := range b.td.Fields {
		if b.td.Fields[i].Name != name {
			continue
		}
		b.td.Fields[i].Setter = func(instance any, value any) error {
			t, ok := instance.(*T)
			if !ok {
				return &InstanceTypeError{TypeName: b.td.Name, Instance: instance}
			}
			return setter(t, value)
		}
	}
	return b
}

// ToOne declares a single-valued association.
func (b *TypeBuilder[T]) ToOne(name, target string, acc Accessor) *TypeBuilder[T] {
	b.td.Associations = append(b.td.Associations, AssociationDescriptor{
		Name: name, Cardinality: ToOne, Target: target, One: acc,
	})
	return b
}

// ToMany declares a collection-valued association.
func (b *TypeBuilder[T]) ToMany(name, target string, acc CollectionAccessor) *TypeBuilder[T] {
	b.td.Associations = append(b.td.Associations, AssociationDescriptor{
		Name: name, Cardinality: ToMany, Target: target, Many: acc,
	})
	return b
}

// Cloneable marks the type as duplicable. Types implementing Cloner use their own
// CloneEntity; others get a shallow struct copy.
func (b *TypeBuilder[T]) Cloneable() *TypeBuilder[T] {
	b.td.Clone = structCloner[T]()
	return b
}

// Build validates and returns the descriptor.
func (b *TypeBuilder[T]) Build() (*TypeDescriptor, error) {
	if err := b.td.index(); err != nil {
		return nil, err
	}
	return b.td, nil
}

// MustBuild is like Build but panics on error.
func (b *TypeBuilder[T]) MustBuild() *TypeDescriptor {
	td, err := b.Build()
	if err != nil {
		panic(err)
	}
	return td
}

func structCloner[T any]() func(any) any {
	return func(instance any) any {
		if c, ok := instance.(Cloner); ok {
			return c.CloneEntity()
		}
		src, ok := instance.(*T)
		if !ok || src == nil {
			return nil
		}
		dup := *src
		detachSlices(reflect.ValueOf(&dup).Elem())
		return &dup
	}
}

// detachSlices gives every exported slice field of a copied struct its own
// backing array, so collection appends on the copy never reach the original.
func detachSlices(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.Slice || f.IsNil() || !f.CanSet() {
			continue
		}
		cp := reflect.MakeSlice(f.Type(), f.Len(), f.Len())
		reflect.Copy(cp, f)
		f.Set(cp)
	}
}
