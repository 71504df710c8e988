package schema

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// IdentityKey normalises an identifier for use as a map key, so that the same
// number arriving as int64 from one source and float64 from another resolves
// to the same instance.
func IdentityKey(typeName string, id any) string {
	return typeName + "\x00" + IdentityText(id)
}

// IdentityText renders an identifier canonically: integral numbers of any Go
// kind in plain decimal, other floats without exponent, strings unchanged.
func IdentityText(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	if n, err := ToInt64(id); err == nil {
		return strconv.FormatInt(n, 10)
	}
	switch v := id.(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(id)
}

// AssignIdentifier stores a generated identifier on instance and returns it.
// Types whose identifier field accepts integers draw from next; all others get
// a random UUID string.
func AssignIdentifier(td *TypeDescriptor, instance any, next func() (int64, error)) (any, error) {
	fd := td.IdentifierField()
	if fd == nil {
		return nil, &SchemaValidationError{TypeName: td.Name, Message: "no identifier field"}
	}

	var id any
	if fd.Accessor.Set(td.New(), int64(1)) == nil {
		n, err := next()
		if err != nil {
			return nil, fmt.Errorf("next %s identifier: %w", td.Name, err)
		}
		id = n
	} else {
		id = uuid.NewString()
	}

	if err := fd.Accessor.Set(instance, id); err != nil {
		return nil, fmt.Errorf("assign %s identifier: %w", td.Name, err)
	}
	return fd.Accessor.Get(instance), nil
}
