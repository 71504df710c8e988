package sqlstore

import (
	"bytes"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/CaliLuke/go-hydrate/hydrate"
	"github.com/CaliLuke/go-hydrate/schema"
)

// encode serialises instance as an ordered msgpack map: fields by value,
// to-one associations as the target identifier (or nil), to-many associations
// as a list of identifiers. Targets must already have identifiers.
func (s *Store) encode(td *schema.TypeDescriptor, instance any) ([]byte, error) {
	body := hydrate.NewMapping()
	for _, fd := range td.Fields {
		body.Set(fd.Name, fd.Accessor.Get(instance))
	}
	for _, ad := range td.Associations {
		target, err := s.describe(ad.Target)
		if err != nil {
			return nil, err
		}
		switch ad.Cardinality {
		case schema.ToOne:
			var id any
			if member := ad.One.Get(instance); member != nil {
				if id = target.IdentifierValue(member); id == nil {
					return nil, fmt.Errorf("%s.%s: target has no identifier", td.Name, ad.Name)
				}
			}
			body.Set(ad.Name, id)
		case schema.ToMany:
			members := ad.Many.Members(instance)
			ids := make([]any, 0, len(members))
			for i, member := range members {
				id := target.IdentifierValue(member)
				if id == nil {
					return nil, fmt.Errorf("%s.%s[%d]: target has no identifier", td.Name, ad.Name, i)
				}
				ids = append(ids, id)
			}
			body.Set(ad.Name, ids)
		}
	}
	b, err := msgpack.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", td.Name, err)
	}
	return b, nil
}

// populate applies a stored body to instance through its accessors. Setters are
// bypassed: this restores state rather than changing it. Association targets
// resolve through the identity map, becoming placeholders when not yet known.
// Callers hold s.mu.
func (s *Store) populate(td *schema.TypeDescriptor, instance any, body []byte) error {
	m, err := hydrate.DecodeMsgpack(bytes.NewReader(body))
	if err != nil {
		return err
	}
	for name, value := range m.All() {
		if fd, ok := td.Field(name); ok {
			if t, ok := value.(time.Time); ok {
				value = t.UTC()
			}
			if err := fd.Accessor.Set(instance, value); err != nil {
				return fmt.Errorf("%s.%s: %w", td.Name, name, err)
			}
			continue
		}
		ad, ok := td.Association(name)
		if !ok {
			// columns of fields since dropped from the type
			continue
		}
		target, err := s.describe(ad.Target)
		if err != nil {
			return err
		}
		switch ad.Cardinality {
		case schema.ToOne:
			var member any
			if value != nil {
				if member, err = s.reference(target, value); err != nil {
					return err
				}
			}
			if err := ad.One.Set(instance, member); err != nil {
				return fmt.Errorf("%s.%s: %w", td.Name, name, err)
			}
		case schema.ToMany:
			ids, _ := value.([]any)
			for _, id := range ids {
				member, err := s.reference(target, id)
				if err != nil {
					return err
				}
				if err := ad.Many.Add(instance, member); err != nil {
					return fmt.Errorf("%s.%s: %w", td.Name, name, err)
				}
			}
		}
	}
	return nil
}
