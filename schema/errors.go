package schema

import "fmt"

// SchemaValidationError is returned when a type description is incomplete or
// inconsistent.
type SchemaValidationError struct {
	TypeName string
	Message  string
}

// Error returns the error message for SchemaValidationError.
func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation %s: %s", e.TypeName, e.Message)
}

// InstanceTypeError is returned by accessors handed an instance of the wrong type.
type InstanceTypeError struct {
	TypeName string
	Instance any
}

// Error returns the error message for InstanceTypeError.
func (e *InstanceTypeError) Error() string {
	return fmt.Sprintf("%s: unexpected instance type %T", e.TypeName, e.Instance)
}
