package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/CaliLuke/go-hydrate/naming"
)

// TagKey is the struct tag read by Register.
const TagKey = "hydrate"

// RegisterOption customises Register.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	typeName  string
	cloneable bool
}

// TypeName overrides the registered type name (default: the Go struct name).
func TypeName(name string) RegisterOption {
	return func(c *registerConfig) { c.typeName = name }
}

// WithClone marks the registered type as cloneable.
func WithClone() RegisterOption {
	return func(c *registerConfig) { c.cloneable = true }
}

// Register scans the struct tags of T once and adds the resulting descriptor to c.
//
//	type Widget struct {
//	    ID        int64     `hydrate:"id,generated"`
//	    Name      string    `hydrate:"name"`
//	    CreatedAt time.Time `hydrate:"createdAt,datetime"`
//	    Owner     *Customer `hydrate:"owner,one"`
//	    Tags      []*Tag    `hydrate:"tags,many"`
//	}
func Register[T any](c *Catalog, opts ...RegisterOption) error {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	td, err := ExtractTypeDescriptor(t, opts...)
	if err != nil {
		return fmt.Errorf("registering %s: %w", t.Name(), err)
	}
	return c.Add(td)
}

// MustRegister is a helper that calls Register and panics if an error occurs.
func MustRegister[T any](c *Catalog, opts ...RegisterOption) {
	if err := Register[T](c, opts...); err != nil {
		panic(err)
	}
}

// ExtractTypeDescriptor analyzes a struct type and builds its descriptor table.
// Reflection is used here only; the returned accessors index fields directly.
func ExtractTypeDescriptor(t reflect.Type, opts ...RegisterOption) (*TypeDescriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}
	cfg := registerConfig{typeName: t.Name()}
	for _, o := range opts {
		o(&cfg)
	}

	td := &TypeDescriptor{
		Name:   cfg.typeName,
		GoType: t,
		New:    func() any { return reflect.New(t).Interface() },
	}
	ptrType := reflect.PointerTo(t)
	if cfg.cloneable || ptrType.Implements(reflect.TypeFor[Cloner]()) {
		td.Clone = reflectCloner(t)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		tagStr, ok := field.Tag.Lookup(TagKey)
		if !ok {
			continue
		}
		tag, err := ParseTag(tagStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if tag.Skip {
			continue
		}
		name := tag.Name
		if name == "" {
			name = defaultFieldName(field.Name)
		}

		if tag.IsAssociation() {
			ad, err := buildAssociation(t, field, i, name, tag)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			td.Associations = append(td.Associations, ad)
			continue
		}

		fd := FieldDescriptor{
			Name:     name,
			Type:     tag.Type,
			Accessor: fieldAccessor(t, i),
		}
		if !tag.HasType && derefType(field.Type) == timeType {
			fd.Type = DateTime
		}
		if tag.Setter {
			setter, err := methodSetter(ptrType, naming.SetterName(field.Name))
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			fd.Setter = setter
		}
		if tag.ID {
			if td.Identifier != "" {
				return nil, fmt.Errorf("field %s: second identifier (already %q)", field.Name, td.Identifier)
			}
			td.Identifier = name
			if tag.Generated {
				td.Generation = Generated
			}
		}
		td.Fields = append(td.Fields, fd)
	}

	if err := td.index(); err != nil {
		return nil, err
	}
	return td, nil
}

// defaultFieldName lower-cases the leading rune of a Go field name, or the whole
// name when it is an all-caps acronym such as ID or URL.
func defaultFieldName(goName string) string {
	if strings.ToUpper(goName) == goName {
		return strings.ToLower(goName)
	}
	return naming.ToInternal(goName)
}

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

func fieldAccessor(st reflect.Type, index int) Accessor {
	ft := st.Field(index).Type
	return Accessor{
		Get: func(instance any) any {
			v, ok := structValue(instance, st)
			if !ok {
				return nil
			}
			f := v.Field(index)
			if f.Kind() == reflect.Ptr || f.Kind() == reflect.Interface {
				if f.IsNil() {
					return nil
				}
				if f.Kind() == reflect.Ptr {
					return f.Elem().Interface()
				}
			}
			return f.Interface()
		},
		Set: func(instance any, value any) error {
			v, ok := structValue(instance, st)
			if !ok {
				return &InstanceTypeError{TypeName: st.Name(), Instance: instance}
			}
			converted, err := ConvertValue(value, ft)
			if err != nil {
				return err
			}
			f := v.Field(index)
			if converted == nil {
				f.Set(reflect.Zero(ft))
				return nil
			}
			f.Set(reflect.ValueOf(converted))
			return nil
		},
	}
}

func buildAssociation(st reflect.Type, field reflect.StructField, index int, name string, tag FieldTag) (AssociationDescriptor, error) {
	ad := AssociationDescriptor{Name: name, Target: tag.Target}
	ft := field.Type

	if tag.One {
		if ft.Kind() != reflect.Ptr || ft.Elem().Kind() != reflect.Struct {
			return ad, fmt.Errorf("to-one association must be a pointer to struct, got %s", ft)
		}
		ad.Cardinality = ToOne
		if ad.Target == "" {
			ad.Target = ft.Elem().Name()
		}
		ad.One = Accessor{
			Get: func(instance any) any {
				v, ok := structValue(instance, st)
				if !ok || v.Field(index).IsNil() {
					return nil
				}
				return v.Field(index).Interface()
			},
			Set: func(instance any, value any) error {
				v, ok := structValue(instance, st)
				if !ok {
					return &InstanceTypeError{TypeName: st.Name(), Instance: instance}
				}
				if value == nil {
					v.Field(index).Set(reflect.Zero(ft))
					return nil
				}
				rv := reflect.ValueOf(value)
				if !rv.Type().AssignableTo(ft) {
					return &ConversionError{Value: value, Target: ft.String()}
				}
				v.Field(index).Set(rv)
				return nil
			},
		}
		return ad, nil
	}

	if ft.Kind() != reflect.Slice || ft.Elem().Kind() != reflect.Ptr || ft.Elem().Elem().Kind() != reflect.Struct {
		return ad, fmt.Errorf("to-many association must be a slice of struct pointers, got %s", ft)
	}
	ad.Cardinality = ToMany
	if ad.Target == "" {
		ad.Target = ft.Elem().Elem().Name()
	}
	elemType := ft.Elem()
	ad.Many = CollectionAccessor{
		Members: func(instance any) []any {
			v, ok := structValue(instance, st)
			if !ok {
				return nil
			}
			s := v.Field(index)
			out := make([]any, s.Len())
			for i := range out {
				out[i] = s.Index(i).Interface()
			}
			return out
		},
		Add: func(instance any, member any) error {
			v, ok := structValue(instance, st)
			if !ok {
				return &InstanceTypeError{TypeName: st.Name(), Instance: instance}
			}
			rv := reflect.ValueOf(member)
			if member == nil || !rv.Type().AssignableTo(elemType) {
				return &ConversionError{Value: member, Target: elemType.String()}
			}
			s := v.Field(index)
			s.Set(reflect.Append(s, rv))
			return nil
		},
	}
	return ad, nil
}

// methodSetter binds a Set<Field> method found on the pointer type.
func methodSetter(ptrType reflect.Type, name string) (func(any, any) error, error) {
	m, ok := ptrType.MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("setter %s not found on %s", name, ptrType)
	}
	mt := m.Type
	// receiver plus one argument; optional error result
	if mt.NumIn() != 2 || mt.NumOut() > 1 {
		return nil, fmt.Errorf("setter %s must take one argument and return at most an error", name)
	}
	errType := reflect.TypeFor[error]()
	if mt.NumOut() == 1 && mt.Out(0) != errType {
		return nil, fmt.Errorf("setter %s must return error", name)
	}
	argType := mt.In(1)
	return func(instance any, value any) error {
		rv := reflect.ValueOf(instance)
		if rv.Type() != ptrType {
			return &InstanceTypeError{TypeName: ptrType.Elem().Name(), Instance: instance}
		}
		arg, err := ConvertValue(value, argType)
		if err != nil {
			return err
		}
		argVal := reflect.Zero(argType)
		if arg != nil {
			argVal = reflect.ValueOf(arg)
		}
		out := m.Func.Call([]reflect.Value{rv, argVal})
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}, nil
}

func reflectCloner(t reflect.Type) func(any) any {
	return func(instance any) any {
		if c, ok := instance.(Cloner); ok {
			return c.CloneEntity()
		}
		v, ok := structValue(instance, t)
		if !ok {
			return nil
		}
		dup := reflect.New(t)
		dup.Elem().Set(v)
		detachSlices(dup.Elem())
		return dup.Interface()
	}
}

// structValue dereferences instance when it is a non-nil pointer to st.
func structValue(instance any, st reflect.Type) (reflect.Value, bool) {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Type() != st {
		return reflect.Value{}, false
	}
	return v.Elem(), true
}
