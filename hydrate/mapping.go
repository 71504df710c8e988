package hydrate

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Mapping is an ordered collection of key/value pairs. Values are scalars,
// nested *Mapping (or map[string]any) values, or sequences of either.
// A nil *Mapping is an empty mapping.
type Mapping struct {
	keys   []string
	values map[string]any
}

var _ msgpack.CustomEncoder = (*Mapping)(nil)

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]any)}
}

// MappingOf builds a Mapping from alternating keys and values, preserving order.
// It panics on an odd argument count or a non-string key.
//
//	hydrate.MappingOf("id", 1, "name", "widget")
func MappingOf(pairs ...any) *Mapping {
	if len(pairs)%2 != 0 {
		panic("hydrate: MappingOf needs key/value pairs")
	}
	m := NewMapping()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("hydrate: MappingOf key %d is %T, not string", i/2, pairs[i]))
		}
		m.Set(key, pairs[i+1])
	}
	return m
}

// FromMap converts a Go map into a Mapping with keys in sorted order, since Go
// maps carry no order of their own. Nested maps are converted recursively.
func FromMap(src map[string]any) *Mapping {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m := NewMapping()
	for _, k := range keys {
		m.Set(k, normalizeValue(src[k]))
	}
	return m
}

func normalizeValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return FromMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = normalizeValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = FromMap(e)
		}
		return out
	default:
		return v
	}
}

// Set stores value under key. Overwriting keeps the key's original position.
func (m *Mapping) Set(key string, value any) *Mapping {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Len returns the number of pairs.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// All iterates over the pairs in insertion order.
func (m *Mapping) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// EncodeMsgpack writes the mapping as a msgpack map, preserving key order.
func (m *Mapping) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(m.Len()); err != nil {
		return err
	}
	for k, v := range m.All() {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode %q: %w", k, err)
		}
	}
	return nil
}

// asMapping reports whether v is a nested mapping.
func asMapping(v any) (*Mapping, bool) {
	switch tv := v.(type) {
	case *Mapping:
		return tv, true
	case map[string]any:
		return FromMap(tv), true
	default:
		return nil, false
	}
}

// asSequence reports whether v is a sequence. Strings and byte slices are scalars.
func asSequence(v any) ([]any, bool) {
	switch tv := v.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return tv, true
	case []*Mapping:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = e
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = e
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
