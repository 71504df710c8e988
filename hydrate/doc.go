// Package hydrate populates entity graphs from loosely typed nested data.
//
// A Hydrator is given a type name and an ordered Mapping. It resolves the root
// instance through a Session (lookup by identifier, optional clone, or fresh
// allocation), then walks the mapping: scalar fields are coerced by their
// logical type and written only when they change, to-one associations are
// re-linked, and to-many associations are merged additively without duplicates.
// Every change is reported to the Session; nothing is persisted here.
//
//	h := hydrate.New(catalog, session)
//	w, err := hydrate.As[Widget](ctx, h, "Widget", hydrate.MappingOf(
//	    "name", "bolt",
//	    "created_at", "2024-03-05 10:20:30",
//	    "tags", []any{1, 2},
//	), false)
package hydrate
