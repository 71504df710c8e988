// Package schema is the catalog of hydratable entity types.
//
// A TypeDescriptor is built once per type and maps every field and association
// name to an accessor pair, so hydration never dispatches on names at runtime.
// Descriptors come from three sources:
//
//   - [NewType] with typed pointer-to-field accessors ([Prop], [Ref], [Refs])
//   - [Register] scanning `hydrate:"..."` struct tags
//   - [NewRecordType] for dynamic [Record] instances without a Go struct
package schema
