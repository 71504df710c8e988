package schemadsl

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/CaliLuke/go-hydrate/naming"
	"github.com/CaliLuke/go-hydrate/schema"
)

// ReservedWords cannot be used as entity or member names.
var ReservedWords = map[string]bool{
	// Statements
	"define": true, "entity": true, "field": true, "one": true, "many": true,
	// Annotations (without @), except id which names most identifier fields
	"generated": true, "cloneable": true,
	// Value types
	"scalar": true, "string": true, "integer": true, "float": true,
	"boolean": true, "date": true, "time": true, "datetime": true,
	// Literals
	"true": true, "false": true, "null": true,
}

// IsReservedWord reports whether name is reserved. The check is case-insensitive.
func IsReservedWord(name string) bool {
	return ReservedWords[strings.ToLower(name)]
}

// ValueTypes maps each value type keyword to the field type and value kind it
// registers with.
var ValueTypes = map[string]struct {
	Field schema.FieldType
	Kind  schema.ValueKind
}{
	"scalar":   {schema.Scalar, schema.AnyValue},
	"string":   {schema.Scalar, schema.StringValue},
	"integer":  {schema.Scalar, schema.IntegerValue},
	"float":    {schema.Scalar, schema.FloatValue},
	"boolean":  {schema.Scalar, schema.BooleanValue},
	"date":     {schema.Date, schema.AnyValue},
	"time":     {schema.Time, schema.AnyValue},
	"datetime": {schema.DateTime, schema.AnyValue},
}

// DefinitionError reports a problem with one entity definition.
type DefinitionError struct {
	Entity string
	Line   int
	Member string
	Reason string
}

// Error returns the error message for DefinitionError.
func (e *DefinitionError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("line %d: entity %q: %s", e.Line, e.Entity, e.Reason)
	}
	return fmt.Sprintf("line %d: entity %q: %q: %s", e.Line, e.Entity, e.Member, e.Reason)
}

// ValidateIdentifier checks that name starts with a letter or underscore and
// continues with letters, digits, hyphens or underscores.
func ValidateIdentifier(name string) error {
	if name == "" {
		return errors.New("empty name")
	}
	for i, r := range name {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return fmt.Errorf("must start with a letter or underscore, got %q", r)
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return fmt.Errorf("invalid character %q at position %d", r, i)
		}
	}
	return nil
}

// Validate checks names, value types, identifiers and association targets.
// known reports types defined outside this schema, such as struct types already
// in a catalog; it may be nil. All problems are returned joined.
func (s *ParsedSchema) Validate(known func(name string) bool) error {
	var errs []error
	seen := make(map[string]bool)
	for i := range s.Entities {
		e := &s.Entities[i]
		fail := func(member, format string, args ...any) {
			errs = append(errs, &DefinitionError{Entity: e.Name, Line: e.Line, Member: member, Reason: fmt.Sprintf(format, args...)})
		}

		if err := ValidateIdentifier(e.Name); err != nil {
			fail("", "%v", err)
		}
		if IsReservedWord(e.Name) {
			fail("", "name is reserved")
		}
		if seen[e.Name] {
			fail("", "defined more than once")
		}
		seen[e.Name] = true

		members := make(map[string]string)
		member := func(name string) {
			if err := ValidateIdentifier(name); err != nil {
				fail(name, "%v", err)
			}
			if IsReservedWord(name) {
				fail(name, "name is reserved")
			}
			internal := naming.ToInternal(name)
			if prev, ok := members[internal]; ok {
				fail(name, "collides with %q", prev)
			}
			members[internal] = name
		}

		ids := 0
		for _, f := range e.Fields {
			member(f.Name)
			vt, ok := ValueTypes[f.ValueType]
			if !ok {
				fail(f.Name, "unknown value type %q", f.ValueType)
			}
			if f.ID {
				ids++
				switch vt.Kind {
				case schema.AnyValue, schema.StringValue, schema.IntegerValue:
					if ok && vt.Field != schema.Scalar {
						fail(f.Name, "identifier cannot have value type %s", f.ValueType)
					}
				default:
					fail(f.Name, "identifier cannot have value type %s", f.ValueType)
				}
			}
			if f.Generated && !f.ID {
				fail(f.Name, "@generated requires @id")
			}
		}
		switch ids {
		case 0:
			fail("", "no field is marked @id")
		case 1:
		default:
			fail("", "%d fields are marked @id", ids)
		}

		for _, a := range e.Associations {
			member(a.Name)
		}
	}

	for _, e := range s.Entities {
		for _, a := range e.Associations {
			if seen[a.Target] || (known != nil && known(a.Target)) {
				continue
			}
			errs = append(errs, &DefinitionError{Entity: e.Name, Line: e.Line, Member: a.Name, Reason: fmt.Sprintf("unknown target %q", a.Target)})
		}
	}
	return errors.Join(errs...)
}
