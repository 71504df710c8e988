package hydrate

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-hydrate/naming"
	"github.com/CaliLuke/go-hydrate/schema"
)

// DefaultMaxDepth is the maximum nesting depth for recursive association
// hydration. It stops runaway recursion on self-referencing input.
const DefaultMaxDepth = 10

// Catalog describes entity types by name.
type Catalog interface {
	Describe(typeName string) (*schema.TypeDescriptor, bool)
}

// Session owns persisted instances: it looks them up by identifier, allocates
// and duplicates them, tracks changes and materialises lazy placeholders.
type Session interface {
	// Find returns the instance of typeName identified by id, or (nil, nil) if none exists.
	Find(ctx context.Context, typeName string, id any) (any, error)
	// Allocate returns a new, empty instance of typeName.
	Allocate(ctx context.Context, typeName string) (any, error)
	// Clone duplicates instance. It returns an error wrapping ErrNotCloneable
	// when the instance's type cannot be duplicated.
	Clone(ctx context.Context, instance any) (any, error)
	// NotifyChanged records that field of instance changed from oldValue to newValue.
	NotifyChanged(instance any, field string, oldValue, newValue any)
	// ForceLoad materialises a lazily loaded instance; a no-op when already loaded.
	ForceLoad(ctx context.Context, instance any) error
}

// Change is one notification delivered to Session.NotifyChanged. Sessions that
// keep a change log record these.
type Change struct {
	Instance any
	Field    string
	Old      any
	New      any
}

// Option configures a Hydrator.
type Option func(*Hydrator)

// WithMaxDepth sets the maximum nesting depth (default DefaultMaxDepth).
func WithMaxDepth(n int) Option {
	return func(h *Hydrator) { h.maxDepth = n }
}

// WithLocation sets the location used to parse date, time and datetime values
// (default time.UTC).
func WithLocation(loc *time.Location) Option {
	return func(h *Hydrator) { h.loc = loc }
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Hydrator) { h.log = l }
}

// Hydrator builds and updates entity graphs from Mappings. It keeps no state
// between calls and may be shared, but each call mutates instances owned by its
// Session, which is expected to serve one unit of work at a time.
type Hydrator struct {
	catalog  Catalog
	session  Session
	maxDepth int
	loc      *time.Location
	log      logrus.FieldLogger
}

// New returns a Hydrator bound to a catalog and a session.
func New(catalog Catalog, session Session, opts ...Option) *Hydrator {
	h := &Hydrator{
		catalog:  catalog,
		session:  session,
		maxDepth: DefaultMaxDepth,
		loc:      time.UTC,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Hydrate resolves the instance of typeName described by data and copies every
// mapped key onto it. Keys are snake_case and matched against camelCase field and
// association names; unknown keys are ignored. When clone is set, every instance
// found by identifier (root and associations alike) is replaced by a duplicate.
// Nothing is persisted.
func (h *Hydrator) Hydrate(ctx context.Context, typeName string, data *Mapping, clone bool) (any, error) {
	return h.hydrate(ctx, typeName, data, clone, 0)
}

// As hydrates typeName and asserts the result to *T.
func As[T any](ctx context.Context, h *Hydrator, typeName string, data *Mapping, clone bool) (*T, error) {
	inst, err := h.Hydrate(ctx, typeName, data, clone)
	if err != nil {
		return nil, err
	}
	t, ok := inst.(*T)
	if !ok {
		return nil, fmt.Errorf("hydrate: %s instance is %T, not %T", typeName, inst, t)
	}
	return t, nil
}

func (h *Hydrator) hydrate(ctx context.Context, typeName string, data *Mapping, clone bool, depth int) (any, error) {
	if depth > h.maxDepth {
		return nil, &DepthExceededError{TypeName: typeName, Max: h.maxDepth}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hydrate %s: context cancelled: %w", typeName, err)
	}

	td, ok := h.catalog.Describe(typeName)
	if !ok {
		return nil, &UnknownTypeError{TypeName: typeName}
	}

	instance, err := h.resolveInstance(ctx, td, data, clone)
	if err != nil {
		return nil, err
	}

	log := h.log.WithFields(logrus.Fields{"type": td.Name, "depth": depth})
	for key, value := range data.All() {
		name := naming.ToInternal(key)

		if name == td.Identifier && td.Generation == schema.Generated {
			log.WithField("key", key).Debug("skipping generated identifier")
			continue
		}
		if fd, ok := td.Field(name); ok {
			if err := h.updateField(td, instance, fd, value); err != nil {
				return nil, err
			}
			continue
		}
		if ad, ok := td.Association(name); ok {
			if err := h.updateAssociation(ctx, td, instance, ad, value, clone, depth); err != nil {
				return nil, err
			}
			continue
		}
		log.WithField("key", key).Debug("ignoring unmapped key")
	}

	return instance, nil
}
