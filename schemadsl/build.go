package schemadsl

import (
	"fmt"

	"github.com/CaliLuke/go-hydrate/naming"
	"github.com/CaliLuke/go-hydrate/schema"
)

// Descriptors validates the schema and returns one Record-backed descriptor per
// entity, in source order. known is passed to Validate.
func (s *ParsedSchema) Descriptors(known func(name string) bool) ([]*schema.TypeDescriptor, error) {
	if err := s.Validate(known); err != nil {
		return nil, err
	}
	out := make([]*schema.TypeDescriptor, 0, len(s.Entities))
	for i := range s.Entities {
		td, err := s.Entities[i].descriptor()
		if err != nil {
			return nil, err
		}
		out = append(out, td)
	}
	return out, nil
}

// Build validates the schema and adds its entities to c. Association targets
// may name types already in c. Nothing is added when validation fails.
func (s *ParsedSchema) Build(c *schema.Catalog) error {
	tds, err := s.Descriptors(func(name string) bool {
		_, ok := c.Describe(name)
		return ok
	})
	if err != nil {
		return err
	}
	for _, td := range tds {
		if err := c.Add(td); err != nil {
			return fmt.Errorf("register %s: %w", td.Name, err)
		}
	}
	return c.Validate()
}

// LoadFile parses the definition file at path and adds its entities to c.
func LoadFile(path string, c *schema.Catalog) (*ParsedSchema, error) {
	s, err := ParseSchemaFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Build(c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (e *EntitySpec) descriptor() (*schema.TypeDescriptor, error) {
	id := e.Identifier()
	policy := schema.GenerateNone
	if id.Generated {
		policy = schema.Generated
	}
	b := schema.NewRecordType(e.Name, naming.ToInternal(id.Name), policy)
	for _, f := range e.Fields {
		vt := ValueTypes[f.ValueType]
		b.Field(naming.ToInternal(f.Name), vt.Field, vt.Kind)
	}
	for _, a := range e.Associations {
		if a.Many {
			b.ToMany(naming.ToInternal(a.Name), a.Target)
		} else {
			b.ToOne(naming.ToInternal(a.Name), a.Target)
		}
	}
	if e.Cloneable {
		b.Cloneable()
	}
	return b.Build()
}
