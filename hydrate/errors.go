package hydrate

import (
	"errors"
	"fmt"
)

// ErrNotCloneable is returned by a Session whose Clone cannot duplicate the
// given instance. The Hydrator reports it as a *NotCloneableError.
var ErrNotCloneable = errors.New("instance is not cloneable")

// UnknownTypeError is returned when a type name is not present in the catalog.
type UnknownTypeError struct {
	TypeName string
}

// Error returns the error message for UnknownTypeError.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("type %q is not registered", e.TypeName)
}

// NotFoundError is returned when data carries an identifier that the session
// cannot find.
type NotFoundError struct {
	TypeName string
	ID       any
}

// Error returns the error message for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with identifier %v: not found", e.TypeName, e.ID)
}

// NotCloneableError is returned when cloning is requested for a type that does
// not support duplication.
type NotCloneableError struct {
	TypeName string
	ID       any
	Cause    error
}

// Error returns the error message for NotCloneableError.
func (e *NotCloneableError) Error() string {
	return fmt.Sprintf("%s with identifier %v is not cloneable", e.TypeName, e.ID)
}

// Unwrap returns the underlying cause of the NotCloneableError.
func (e *NotCloneableError) Unwrap() error {
	return e.Cause
}

// InvalidFormatError is returned when a date, time or datetime field receives a
// value that does not match its layout.
type InvalidFormatError struct {
	TypeName string
	Field    string
	Value    any
	Layout   string
	Cause    error
}

// Error returns the error message for InvalidFormatError.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("%s.%s: value %v (%T) does not match layout %q", e.TypeName, e.Field, e.Value, e.Value, e.Layout)
}

// Unwrap returns the underlying parse error, if any.
func (e *InvalidFormatError) Unwrap() error {
	return e.Cause
}

// InvalidArgumentError is returned when an association value has the wrong shape,
// e.g. a to-many association fed something other than a sequence.
type InvalidArgumentError struct {
	TypeName string
	Field    string
	Value    any
	Reason   string
}

// Error returns the error message for InvalidArgumentError.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s.%s: %s (got %T)", e.TypeName, e.Field, e.Reason, e.Value)
}

// DepthExceededError is returned when nested data goes deeper than the
// configured maximum, typically because the input references itself.
type DepthExceededError struct {
	TypeName string
	Max      int
}

// Error returns the error message for DepthExceededError.
func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("hydrating %s: depth exceeded maximum of %d (possible cycle in data)", e.TypeName, e.Max)
}

// HydrationError is returned when an accessor or the session fails while
// populating a field.
type HydrationError struct {
	TypeName string
	Field    string
	Cause    error
}

// Error returns the error message for HydrationError.
func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrating %s.%s: %v", e.TypeName, e.Field, e.Cause)
}

// Unwrap returns the underlying cause of the HydrationError.
func (e *HydrationError) Unwrap() error {
	return e.Cause
}
