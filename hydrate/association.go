package hydrate

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-hydrate/schema"
)

func (h *Hydrator) updateAssociation(ctx context.Context, td *schema.TypeDescriptor, instance any, ad *schema.AssociationDescriptor, raw any, clone bool, depth int) error {
	if ad.Cardinality == schema.ToMany {
		return h.updateToMany(ctx, td, instance, ad, raw, clone, depth)
	}
	return h.updateToOne(ctx, td, instance, ad, raw, clone, depth)
}

// resolveTarget turns one association value into a target instance: a nested
// mapping is hydrated, a scalar is taken as the target's identifier.
func (h *Hydrator) resolveTarget(ctx context.Context, td *schema.TypeDescriptor, ad *schema.AssociationDescriptor, raw any, clone bool, depth int) (any, error) {
	if m, ok := asMapping(raw); ok {
		return h.hydrate(ctx, ad.Target, m, clone, depth+1)
	}
	if _, ok := asSequence(raw); ok {
		return nil, &InvalidArgumentError{TypeName: td.Name, Field: ad.Name, Value: raw, Reason: "expected a mapping or an identifier"}
	}
	target, ok := h.catalog.Describe(ad.Target)
	if !ok {
		return nil, &UnknownTypeError{TypeName: ad.Target}
	}
	return h.resolveByID(ctx, target, raw, clone)
}

// updateToOne links the resolved target, or unlinks on nil.
func (h *Hydrator) updateToOne(ctx context.Context, td *schema.TypeDescriptor, instance any, ad *schema.AssociationDescriptor, raw any, clone bool, depth int) error {
	var target any
	if raw != nil {
		var err error
		target, err = h.resolveTarget(ctx, td, ad, raw, clone, depth)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", td.Name, ad.Name, err)
		}
		if err := h.session.ForceLoad(ctx, target); err != nil {
			return &HydrationError{TypeName: td.Name, Field: ad.Name, Cause: err}
		}
	}

	old := ad.One.Get(instance)
	if sameInstance(old, target) {
		return nil
	}
	if err := ad.One.Set(instance, target); err != nil {
		return &HydrationError{TypeName: td.Name, Field: ad.Name, Cause: err}
	}
	h.session.NotifyChanged(instance, ad.Name, old, target)
	h.log.WithFields(logrus.Fields{"type": td.Name, "association": ad.Name}).Debug("association relinked")
	return nil
}

// updateToMany merges the listed targets into the collection. Members missing
// from raw are kept; members already present are not added twice.
func (h *Hydrator) updateToMany(ctx context.Context, td *schema.TypeDescriptor, instance any, ad *schema.AssociationDescriptor, raw any, clone bool, depth int) error {
	items, ok := asSequence(raw)
	if !ok {
		return &InvalidArgumentError{TypeName: td.Name, Field: ad.Name, Value: raw, Reason: "to-many value must be a sequence"}
	}

	for i, item := range items {
		if item == nil {
			return &InvalidArgumentError{TypeName: td.Name, Field: ad.Name, Value: item, Reason: fmt.Sprintf("element %d is nil", i)}
		}
		target, err := h.resolveTarget(ctx, td, ad, item, clone, depth)
		if err != nil {
			return fmt.Errorf("%s.%s[%d]: %w", td.Name, ad.Name, i, err)
		}
		if containsInstance(ad.Many.Members(instance), target) {
			continue
		}
		if err := ad.Many.Add(instance, target); err != nil {
			return &HydrationError{TypeName: td.Name, Field: ad.Name, Cause: err}
		}
		h.session.NotifyChanged(instance, ad.Name, nil, target)
		h.log.WithFields(logrus.Fields{"type": td.Name, "association": ad.Name, "index": i}).Debug("collection member added")
	}
	return nil
}

func containsInstance(members []any, target any) bool {
	for _, m := range members {
		if sameInstance(m, target) {
			return true
		}
	}
	return false
}
