package hydrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-hydrate/naming"
	"github.com/CaliLuke/go-hydrate/schema"
)

// resolveInstance finds the instance identified in data, or allocates a new one
// when data carries no identifier.
func (h *Hydrator) resolveInstance(ctx context.Context, td *schema.TypeDescriptor, data *Mapping, clone bool) (any, error) {
	if id, ok := identifierIn(td, data); ok {
		return h.resolveByID(ctx, td, id, clone)
	}
	instance, err := h.session.Allocate(ctx, td.Name)
	if err != nil {
		return nil, fmt.Errorf("allocate %s: %w", td.Name, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("allocate %s: session returned no instance", td.Name)
	}
	h.log.WithField("type", td.Name).Debug("allocated new instance")
	return instance, nil
}

// identifierIn returns the non-nil identifier value carried by data.
func identifierIn(td *schema.TypeDescriptor, data *Mapping) (any, bool) {
	for key, value := range data.All() {
		if naming.ToInternal(key) == td.Identifier && value != nil {
			return value, true
		}
	}
	return nil, false
}

// resolveByID looks an instance up by identifier and duplicates it when clone is set.
func (h *Hydrator) resolveByID(ctx context.Context, td *schema.TypeDescriptor, id any, clone bool) (any, error) {
	instance, err := h.session.Find(ctx, td.Name, id)
	if err != nil {
		return nil, &HydrationError{TypeName: td.Name, Field: td.Identifier, Cause: err}
	}
	if instance == nil {
		return nil, &NotFoundError{TypeName: td.Name, ID: id}
	}
	if !clone {
		return instance, nil
	}

	dup, err := h.session.Clone(ctx, instance)
	if errors.Is(err, ErrNotCloneable) {
		return nil, &NotCloneableError{TypeName: td.Name, ID: id, Cause: err}
	}
	if err != nil {
		return nil, &HydrationError{TypeName: td.Name, Field: td.Identifier, Cause: err}
	}
	if dup == nil {
		return nil, &NotCloneableError{TypeName: td.Name, ID: id}
	}
	h.log.WithFields(logrus.Fields{"type": td.Name, "id": id}).Debug("cloned instance")
	return dup, nil
}
