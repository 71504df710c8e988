package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-hydrate/hydrate"
	"github.com/CaliLuke/go-hydrate/schema"
)

func idText(id any) string {
	return schema.IdentityText(id)
}

func (s *Store) describe(typeName string) (*schema.TypeDescriptor, error) {
	td, ok := s.catalog.Describe(typeName)
	if !ok {
		return nil, &hydrate.UnknownTypeError{TypeName: typeName}
	}
	return td, nil
}

func (s *Store) describeInstance(instance any) (*schema.TypeDescriptor, error) {
	td, ok := s.catalog.DescribeInstance(instance)
	if !ok {
		return nil, fmt.Errorf("unregistered instance type %T", instance)
	}
	return td, nil
}

// Find returns the instance of typeName identified by id, reading it from the
// database unless it is already in the identity map.
func (s *Store) Find(ctx context.Context, typeName string, id any) (any, error) {
	if err := s.check(ctx, "find"); err != nil {
		return nil, err
	}
	td, err := s.describe(typeName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if instance, ok := s.identity[schema.IdentityKey(td.Name, id)]; ok {
		if err := s.load(ctx, td, instance); err != nil {
			return nil, err
		}
		return instance, nil
	}

	body, err := s.readBody(ctx, s.db, td.Name, idText(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %v: %w", td.Name, id, err)
	}
	instance := td.New()
	if err := s.populate(td, instance, body); err != nil {
		return nil, fmt.Errorf("find %s %v: %w", td.Name, id, err)
	}
	s.identity[schema.IdentityKey(td.Name, id)] = instance
	s.log.WithFields(logrus.Fields{"type": td.Name, "id": id}).Debug("loaded instance")
	return instance, nil
}

// Allocate returns a new, unmanaged instance of typeName.
func (s *Store) Allocate(ctx context.Context, typeName string) (any, error) {
	td, err := s.describe(typeName)
	if err != nil {
		return nil, err
	}
	return td.New(), nil
}

// Clone duplicates instance. The duplicate keeps the original's identifier
// until it is persisted, at which point generated identifiers are replaced.
func (s *Store) Clone(ctx context.Context, instance any) (any, error) {
	td, err := s.describeInstance(instance)
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	if !td.Cloneable() {
		return nil, fmt.Errorf("clone %s: %w", td.Name, hydrate.ErrNotCloneable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, td, instance); err != nil {
		return nil, err
	}
	return td.Clone(instance), nil
}

// NotifyChanged records the change and marks managed instances dirty.
func (s *Store) NotifyChanged(instance any, field string, oldValue, newValue any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, hydrate.Change{Instance: instance, Field: field, Old: oldValue, New: newValue})
	if s.managed(instance) {
		s.enqueue(instance)
	}
}

// ForceLoad reads a placeholder's row. Loaded and unmanaged instances are left alone.
func (s *Store) ForceLoad(ctx context.Context, instance any) error {
	if err := s.check(ctx, "force load"); err != nil {
		return err
	}
	td, err := s.describeInstance(instance)
	if err != nil {
		return fmt.Errorf("force load: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, td, instance)
}

// Persist schedules instance for insertion on the next Flush. Types with a
// generated identifier policy receive an identifier here when they have none,
// or when theirs belongs to another instance. Other types must carry one.
func (s *Store) Persist(ctx context.Context, instance any) error {
	if err := s.check(ctx, "persist"); err != nil {
		return err
	}
	td, err := s.describeInstance(instance)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, s.db, td, instance)
}

// Remove schedules the instance's row for deletion on the next Flush.
func (s *Store) Remove(ctx context.Context, instance any) error {
	if err := s.check(ctx, "remove"); err != nil {
		return err
	}
	td, err := s.describeInstance(instance)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.managed(instance) {
		return fmt.Errorf("remove %s: instance is not managed", td.Name)
	}
	id := td.IdentifierValue(instance)
	delete(s.identity, schema.IdentityKey(td.Name, id))
	delete(s.lazy, instance)
	s.dequeue(instance)
	s.removed = append(s.removed, removal{typeName: td.Name, id: idText(id)})
	return nil
}

// Contains reports whether instance is in the identity map.
func (s *Store) Contains(instance any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.managed(instance)
}

// Loaded reports whether instance holds its stored state, i.e. it is not a
// placeholder awaiting ForceLoad.
func (s *Store) Loaded(instance any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lazy[instance]
}

// Pending returns the number of instances awaiting write or deletion.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) + len(s.removed)
}

// Changes returns a copy of the changes reported since the last ResetChanges.
func (s *Store) Changes() []hydrate.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]hydrate.Change, len(s.changes))
	copy(out, s.changes)
	return out
}

// ResetChanges clears the change log. It does not affect pending writes.
func (s *Store) ResetChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = nil
}

// The methods below expect s.mu to be held.

func (s *Store) managed(instance any) bool {
	td, ok := s.catalog.DescribeInstance(instance)
	if !ok {
		return false
	}
	id := td.IdentifierValue(instance)
	if id == nil {
		return false
	}
	return s.identity[schema.IdentityKey(td.Name, id)] == instance
}

func (s *Store) enqueue(instance any) {
	if s.queued[instance] {
		return
	}
	s.queued[instance] = true
	s.pending = append(s.pending, instance)
}

func (s *Store) dequeue(instance any) {
	if !s.queued[instance] {
		return
	}
	delete(s.queued, instance)
	for i, p := range s.pending {
		if p == instance {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// reference returns the managed instance for (target, id), creating an
// unloaded placeholder when none is known yet.
func (s *Store) reference(target *schema.TypeDescriptor, id any) (any, error) {
	key := schema.IdentityKey(target.Name, id)
	if instance, ok := s.identity[key]; ok {
		return instance, nil
	}
	instance := target.New()
	fd := target.IdentifierField()
	if err := fd.Accessor.Set(instance, id); err != nil {
		return nil, fmt.Errorf("placeholder %s %v: %w", target.Name, id, err)
	}
	s.identity[key] = instance
	s.lazy[instance] = true
	return instance, nil
}

// load reads and applies the row of a placeholder.
func (s *Store) load(ctx context.Context, td *schema.TypeDescriptor, instance any) error {
	if !s.lazy[instance] {
		return nil
	}
	id := td.IdentifierValue(instance)
	body, err := s.readBody(ctx, s.db, td.Name, idText(id))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load %s %v: %w", td.Name, id, ErrMissingRow)
	}
	if err != nil {
		return fmt.Errorf("load %s %v: %w", td.Name, id, err)
	}
	if err := s.populate(td, instance, body); err != nil {
		return fmt.Errorf("load %s %v: %w", td.Name, id, err)
	}
	delete(s.lazy, instance)
	s.log.WithFields(logrus.Fields{"type": td.Name, "id": id}).Debug("materialised placeholder")
	return nil
}

func (s *Store) persist(ctx context.Context, q querier, td *schema.TypeDescriptor, instance any) error {
	id := td.IdentifierValue(instance)
	if id != nil {
		existing, taken := s.identity[schema.IdentityKey(td.Name, id)]
		switch {
		case !taken:
		case existing == instance:
			s.enqueue(instance)
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
		if id, err = s.generate(ctx, q, td, instance); err != nil {
			return fmt.Errorf("persist %s: %w", td.Name, err)
		}
	}
	s.identity[schema.IdentityKey(td.Name, id)] = instance
	s.enqueue(instance)
	s.log.WithFields(logrus.Fields{"type": td.Name, "id": id}).Debug("scheduled insert")
	return nil
}

// generate assigns identifiers until one is neither managed nor stored.
func (s *Store) generate(ctx context.Context, q querier, td *schema.TypeDescriptor, instance any) (any, error) {
	for {
		id, err := schema.AssignIdentifier(td, instance, func() (int64, error) {
			return s.nextSequence(ctx, q, td.Name)
		})
		if err != nil {
			return nil, err
		}
		if _, taken := s.identity[schema.IdentityKey(td.Name, id)]; taken {
			continue
		}
		stored, err := s.rowExists(ctx, q, td.Name, idText(id))
		if err != nil {
			return nil, err
		}
		if !stored {
			return id, nil
		}
	}
}
