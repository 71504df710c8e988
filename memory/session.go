// Package memory provides an in-process hydrate.Session: an identity map of
// persisted instances with generated identifiers and a log of recorded changes.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-hydrate/hydrate"
	"github.com/CaliLuke/go-hydrate/schema"
)

// Loader is implemented by instances that materialise their state on demand.
type Loader interface {
	Loaded() bool
	Load(ctx context.Context) error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for debug tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

// Session keeps persisted instances keyed by (type, identifier).
type Session struct {
	catalog *schema.Catalog
	log     logrus.FieldLogger

	mu        sync.Mutex
	identity  map[string]any
	sequences map[string]int64
	changes   []hydrate.Change
}

var _ hydrate.Session = (*Session)(nil)

// New returns an empty Session over catalog.
func New(catalog *schema.Catalog, opts ...Option) *Session {
	s := &Session{
		catalog:   catalog,
		log:       logrus.StandardLogger(),
		identity:  make(map[string]any),
		sequences: make(map[string]int64),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Find returns the persisted instance, materialising it if it is lazy.
func (s *Session) Find(ctx context.Context, typeName string, id any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find: context cancelled: %w", err)
	}
	s.mu.Lock()
	instance, ok := s.identity[schema.IdentityKey(typeName, id)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	if err := s.ForceLoad(ctx, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// Allocate returns a new, unmanaged instance of typeName.
func (s *Session) Allocate(ctx context.Context, typeName string) (any, error) {
	td, ok := s.catalog.Describe(typeName)
	if !ok {
		return nil, &hydrate.UnknownTypeError{TypeName: typeName}
	}
	return td.New(), nil
}

// Clone duplicates instance using its type's clone function. The duplicate is
// not managed until persisted.
func (s *Session) Clone(ctx context.Context, instance any) (any, error) {
	td, ok := s.catalog.DescribeInstance(instance)
	if !ok {
		return nil, fmt.Errorf("clone: unregistered instance type %T", instance)
	}
	if !td.Cloneable() {
		return nil, fmt.Errorf("clone %s: %w", td.Name, hydrate.ErrNotCloneable)
	}
	return td.Clone(instance), nil
}

// NotifyChanged appends a Change to the log.
func (s *Session) NotifyChanged(instance any, field string, oldValue, newValue any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, hydrate.Change{Instance: instance, Field: field, Old: oldValue, New: newValue})
}

// ForceLoad materialises instances implementing Loader.
func (s *Session) ForceLoad(ctx context.Context, instance any) error {
	l, ok := instance.(Loader)
	if !ok || l.Loaded() {
		return nil
	}
	if err := l.Load(ctx); err != nil {
		return fmt.Errorf("load %T: %w", instance, err)
	}
	return nil
}

// Persist makes instance findable. Instances of types with a generated
// identifier policy receive a fresh identifier when they have none or when
// theirs is held by another instance, as happens with clones. Other types must
// carry a unique identifier.
func (s *Session) Persist(ctx context.Context, instance any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("persist: context cancelled: %w", err)
	}
	td, ok := s.catalog.DescribeInstance(instance)
	if !ok {
		return fmt.Errorf("persist: unregistered instance type %T", instance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := td.IdentifierValue(instance)
	if id != nil {
		existing, taken := s.identity[schema.IdentityKey(td.Name, id)]
		switch {
		case !taken:
		case existing == instance:
			return nil
		case td.Generation == schema.Generated:
			id = nil
		default:
			return fmt.Errorf("persist %s: identifier %v already managed by another instance", td.Name, id)
		}
	}
	if id == nil {
		if td.Generation != schema.Generated {
			return fmt.Errorf("persist %s: identifier %q is required", td.Name, td.Identifier)
		}
		var err error
		if id, err = s.generate(td, instance); err != nil {
			return fmt.Errorf("persist %s: %w", td.Name, err)
		}
	}
	s.identity[schema.IdentityKey(td.Name, id)] = instance
	s.log.WithFields(logrus.Fields{"type": td.Name, "id": id}).Debug("persisted instance")
	return nil
}

// generate assigns identifiers until one is free. Callers hold s.mu.
func (s *Session) generate(td *schema.TypeDescriptor, instance any) (any, error) {
	for {
		id, err := schema.AssignIdentifier(td, instance, func() (int64, error) {
			s.sequences[td.Name]++
			return s.sequences[td.Name], nil
		})
		if err != nil {
			return nil, err
		}
		if _, taken := s.identity[schema.IdentityKey(td.Name, id)]; !taken {
			return id, nil
		}
	}
}

// Remove forgets instance.
func (s *Session) Remove(instance any) {
	td, ok := s.catalog.DescribeInstance(instance)
	if !ok {
		return
	}
	id := td.IdentifierValue(instance)
	if id == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := schema.IdentityKey(td.Name, id)
	if s.identity[key] == instance {
		delete(s.identity, key)
	}
}

// Contains reports whether instance is managed by the session.
func (s *Session) Contains(instance any) bool {
	td, ok := s.catalog.DescribeInstance(instance)
	if !ok {
		return false
	}
	id := td.IdentifierValue(instance)
	if id == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity[schema.IdentityKey(td.Name, id)] == instance
}

// Changes returns a copy of the change log.
func (s *Session) Changes() []hydrate.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]hydrate.Change, len(s.changes))
	copy(out, s.changes)
	return out
}

// ResetChanges clears the change log.
func (s *Session) ResetChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = nil
}
