package schema

import (
	"fmt"
	"strings"
)

// FieldTag contains the structured representation of a parsed `hydrate` struct tag.
type FieldTag struct {
	// Name is the internal field name; empty means derived from the Go field name.
	Name string
	// ID marks the identifier field.
	ID bool
	// Generated marks the identifier as session-assigned.
	Generated bool
	// Type is the logical field type; only meaningful when HasType is set.
	Type FieldType
	// HasType records whether the tag named a logical type explicitly.
	HasType bool
	// One marks a to-one association.
	One bool
	// Many marks a to-many association.
	Many bool
	// Target overrides the associated type name (one:Target, many:Target).
	Target string
	// Setter routes writes through the Set<Field> method.
	Setter bool
	// Skip indicates the field should be ignored.
	Skip bool
}

// IsAssociation returns true if the tag declares a relationship.
func (ft FieldTag) IsAssociation() bool {
	return ft.One || ft.Many
}

// ParseTag parses the content of a `hydrate` struct tag into a FieldTag.
// It supports the options id, generated, scalar, date, time, datetime, setter,
// one[:Target] and many[:Target].
func ParseTag(tag string) (FieldTag, error) {
	if tag == "" || tag == "-" {
		return FieldTag{Skip: tag == "-"}, nil
	}

	parts := strings.Split(tag, ",")
	ft := FieldTag{}

	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		switch {
		case part == "id":
			ft.ID = true
		case part == "generated":
			ft.Generated = true
		case part == "setter":
			ft.Setter = true
		case part == "-":
			ft.Skip = true
		case part == "scalar":
			ft.Type, ft.HasType = Scalar, true
		case part == "date":
			ft.Type, ft.HasType = Date, true
		case part == "time":
			ft.Type, ft.HasType = Time, true
		case part == "datetime":
			ft.Type, ft.HasType = DateTime, true
		case part == "one":
			ft.One = true
		case part == "many":
			ft.Many = true
		case strings.HasPrefix(part, "one:"):
			ft.One = true
			ft.Target = strings.TrimPrefix(part, "one:")
		case strings.HasPrefix(part, "many:"):
			ft.Many = true
			ft.Target = strings.TrimPrefix(part, "many:")
		default:
			if i == 0 && !strings.ContainsAny(part, ":=") {
				ft.Name = part
			} else {
				return FieldTag{}, fmt.Errorf("unknown tag option: %q", part)
			}
		}
	}

	if ft.One && ft.Many {
		return FieldTag{}, fmt.Errorf("tag %q declares both one and many", tag)
	}
	if ft.IsAssociation() && (ft.ID || ft.HasType || ft.Setter) {
		return FieldTag{}, fmt.Errorf("tag %q mixes association and field options", tag)
	}
	if ft.Generated && !ft.ID {
		return FieldTag{}, fmt.Errorf("tag %q: generated requires id", tag)
	}
	return ft, nil
}
