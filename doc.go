// Package gohydrate rebuilds typed entity graphs from loosely typed nested data.
//
// Given an ordered mapping of snake_case keys (decoded from JSON, msgpack or built
// in code) and an entity type name, the hydrator resolves the root instance
// through a persistence session, by identifier or by allocating a new one, and
// copies every mapped key onto it. Nested mappings and identifiers become
// associations, temporal strings become time.Time values, and every change is
// reported back to the session.
//
// The module is organized into these packages:
//
//   - [github.com/CaliLuke/go-hydrate/hydrate]: the Hydrator, Mapping and input codecs
//   - [github.com/CaliLuke/go-hydrate/schema]: the type catalog, struct tag registration, builders and Records
//   - [github.com/CaliLuke/go-hydrate/schemadsl]: textual entity definitions registered as Record types
//   - [github.com/CaliLuke/go-hydrate/memory]: an in-memory session with an identity map
//   - [github.com/CaliLuke/go-hydrate/sqlstore]: a SQLite-backed session with a unit of work
//   - [github.com/CaliLuke/go-hydrate/naming]: key and field name translation
//
// The hydrate command at cmd/hydrate ties a definition file, a document and a
// SQLite database together.
package gohydrate
