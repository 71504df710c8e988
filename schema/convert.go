package schema

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// ToInt64 normalises any Go integer or integral float to int64.
// Floats with a fractional part are rejected.
func ToInt64(val any) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, &ConversionError{Value: val, Target: "int64"}
		}
		return int64(v), nil
	case float32:
		return floatToInt64(float64(v), val)
	case float64:
		return floatToInt64(v, val)
	default:
		return 0, &ConversionError{Value: val, Target: "int64"}
	}
}

func floatToInt64(f float64, orig any) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, &ConversionError{Value: orig, Target: "int64"}
	}
	return int64(f), nil
}

// ToFloat64 normalises any Go number to float64.
func ToFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, &ConversionError{Value: val, Target: "float64"}
	}
}

// ConvertValue converts val so that it can be stored in a location of type t.
// nil becomes the zero value of t. Numbers are converted across kinds, values are
// boxed into pointers when t is a pointer to the value's type.
func ConvertValue(val any, t reflect.Type) (any, error) {
	if val == nil {
		return reflect.Zero(t).Interface(), nil
	}
	rv := reflect.ValueOf(val)
	if rv.Type().AssignableTo(t) {
		return val, nil
	}

	if t.Kind() == reflect.Ptr {
		elem, err := ConvertValue(val, t.Elem())
		if err != nil {
			return nil, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(reflect.ValueOf(elem))
		return p.Interface(), nil
	}

	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Zero(t).Interface(), nil
		}
		return ConvertValue(rv.Elem().Interface(), t)
	}

	switch {
	case isInt(t.Kind()):
		i64, err := ToInt64(val)
		if err != nil {
			return nil, &ConversionError{Value: val, Target: t.String()}
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(i64) {
			return nil, &ConversionError{Value: val, Target: t.String()}
		}
		out.SetInt(i64)
		return out.Interface(), nil
	case isUint(t.Kind()):
		i64, err := ToInt64(val)
		if err != nil || i64 < 0 {
			return nil, &ConversionError{Value: val, Target: t.String()}
		}
		out := reflect.New(t).Elem()
		if out.OverflowUint(uint64(i64)) {
			return nil, &ConversionError{Value: val, Target: t.String()}
		}
		out.SetUint(uint64(i64))
		return out.Interface(), nil
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		f64, err := ToFloat64(val)
		if err != nil {
			return nil, &ConversionError{Value: val, Target: t.String()}
		}
		out := reflect.New(t).Elem()
		out.SetFloat(f64)
		return out.Interface(), nil
	case rv.Type().ConvertibleTo(t) && rv.Kind() == t.Kind():
		// named types sharing an underlying kind, e.g. type Status string
		return rv.Convert(t).Interface(), nil
	}
	return nil, &ConversionError{Value: val, Target: t.String()}
}

// Convert is the typed form of ConvertValue.
func Convert[V any](val any) (V, error) {
	if v, ok := val.(V); ok {
		return v, nil
	}
	var zero V
	out, err := ConvertValue(val, reflect.TypeFor[V]())
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(V), nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// ConversionError is returned when a value cannot be stored in a field of the
// requested Go type.
type ConversionError struct {
	Value  any
	Target string
}

// Error returns the error message for ConversionError.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %T(%v) to %s", e.Value, e.Value, e.Target)
}
