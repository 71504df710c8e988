package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CaliLuke/go-hydrate/hydrate"
	"github.com/CaliLuke/go-hydrate/naming"
	"github.com/CaliLuke/go-hydrate/schema"
)

// describe returns "type id" for an instance, or "type (new)" before it has one.
func describe(c *schema.Catalog, instance any) string {
	td, ok := c.DescribeInstance(instance)
	if !ok {
		return fmt.Sprintf("%T", instance)
	}
	id := td.IdentifierValue(instance)
	if id == nil {
		return td.Name + " (new)"
	}
	return fmt.Sprintf("%s %v", td.Name, id)
}

// writeInstance prints the instance header followed by one line per member,
// keyed by its snake_case name. Associations print as target descriptions.
func writeInstance(w io.Writer, c *schema.Catalog, instance any) error {
	td, ok := c.DescribeInstance(instance)
	if !ok {
		return fmt.Errorf("unregistered instance type %T", instance)
	}
	var b strings.Builder
	b.WriteString(describe(c, instance))
	b.WriteByte('\n')
	for _, fd := range td.Fields {
		if fd.Name == td.Identifier {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", naming.ToExternal(fd.Name), formatValue(fd.Type, fd.Accessor.Get(instance)))
	}
	for _, ad := range td.Associations {
		var value string
		switch ad.Cardinality {
		case schema.ToOne:
			value = "-"
			if member := ad.One.Get(instance); member != nil {
				value = describe(c, member)
			}
		case schema.ToMany:
			members := ad.Many.Members(instance)
			parts := make([]string, len(members))
			for i, m := range members {
				parts[i] = describe(c, m)
			}
			value = "[" + strings.Join(parts, ", ") + "]"
		}
		fmt.Fprintf(&b, "  %s: %s\n", naming.ToExternal(ad.Name), value)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatValue(ft schema.FieldType, v any) string {
	if v == nil {
		return "-"
	}
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Sprint(v)
	}
	switch ft {
	case schema.Date:
		return t.Format(hydrate.DateLayout)
	case schema.Time:
		return t.Format(hydrate.TimeLayout)
	default:
		return t.Format(hydrate.DateTimeLayout)
	}
}
