package hydrate

import (
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-hydrate/schema"
)

// Layouts for the temporal field types.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
)

func layoutFor(ft schema.FieldType) string {
	switch ft {
	case schema.Date:
		return DateLayout
	case schema.Time:
		return TimeLayout
	case schema.DateTime:
		return DateTimeLayout
	default:
		return ""
	}
}

// coerce converts raw input according to the field's logical type.
func (h *Hydrator) coerce(td *schema.TypeDescriptor, fd *schema.FieldDescriptor, raw any) (any, error) {
	layout := layoutFor(fd.Type)
	if layout == "" {
		return raw, nil
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case string:
		t, err := time.ParseInLocation(layout, v, h.loc)
		if err != nil {
			return nil, &InvalidFormatError{TypeName: td.Name, Field: fd.Name, Value: raw, Layout: layout, Cause: err}
		}
		return t, nil
	default:
		return nil, &InvalidFormatError{TypeName: td.Name, Field: fd.Name, Value: raw, Layout: layout}
	}
}

// updateField coerces raw and writes it, through the field's setter when one is
// configured, when it differs from the current value. The session is notified
// when the stored value changed.
func (h *Hydrator) updateField(td *schema.TypeDescriptor, instance any, fd *schema.FieldDescriptor, raw any) error {
	value, err := h.coerce(td, fd, raw)
	if err != nil {
		return err
	}

	old := fd.Accessor.Get(instance)
	if sameValue(old, value) {
		return nil
	}
	write := fd.Accessor.Set
	if fd.Setter != nil {
		write = fd.Setter
	}
	if err := write(instance, value); err != nil {
		return &HydrationError{TypeName: td.Name, Field: fd.Name, Cause: err}
	}
	// accessors and setters may normalise; compare what was actually stored
	stored := fd.Accessor.Get(instance)
	if sameValue(old, stored) {
		return nil
	}
	h.session.NotifyChanged(instance, fd.Name, old, stored)
	h.log.WithFields(logrus.Fields{"type": td.Name, "field": fd.Name}).Debug("field changed")
	return nil
}

// sameValue compares field values: times by instant, comparable values with ==.
// Values of different or non-comparable types are never the same.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	ra, rb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ra != rb || !ra.Comparable() {
		return false
	}
	return a == b
}

// sameInstance compares association targets by identity.
func sameInstance(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
