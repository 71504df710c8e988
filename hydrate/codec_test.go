package hydrate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDecodeJSON_PreservesOrder(t *testing.T) {
	m, err := DecodeJSON(strings.NewReader(`{"zeta": 1, "alpha": 2.5, "mid": {"b": true, "a": null}, "list": [1, "x", {"k": "v"}]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid", "list"}, m.Keys())

	v, _ := m.Get("zeta")
	assert.Equal(t, int64(1), v)
	v, _ = m.Get("alpha")
	assert.Equal(t, 2.5, v)

	v, _ = m.Get("mid")
	mid, ok := v.(*Mapping)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, mid.Keys())
	a, present := mid.Get("a")
	assert.True(t, present)
	assert.Nil(t, a)

	v, _ = m.Get("list")
	list, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, list, 3)
	assert.Equal(t, int64(1), list[0])
	assert.Equal(t, "x", list[1])
	assert.IsType(t, &Mapping{}, list[2])
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array root", `[1, 2]`},
		{"scalar root", `"x"`},
		{"truncated", `{"a": 1`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeMsgpack_RoundTripKeepsOrder(t *testing.T) {
	src := MappingOf(
		"name", "bolt",
		"count", int64(3),
		"owner", MappingOf("name", "Ada", "age", 36),
		"tags", []any{int64(1), MappingOf("label", "red")},
	)
	var buf bytes.Buffer
	require.NoError(t, msgpack.NewEncoder(&buf).Encode(src))

	m, err := DecodeMsgpack(&buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "count", "owner", "tags"}, m.Keys())
	v, _ := m.Get("count")
	assert.Equal(t, int64(3), v)

	v, _ = m.Get("owner")
	owner, ok := v.(*Mapping)
	require.True(t, ok)
	assert.Equal(t, []string{"name", "age"}, owner.Keys())

	v, _ = m.Get("tags")
	tags, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, tags, 2)
	assert.IsType(t, &Mapping{}, tags[1])
}

func TestDecodeMsgpack_RejectsNonMap(t *testing.T) {
	b, err := msgpack.Marshal([]int{1, 2})
	require.NoError(t, err)

	_, err = DecodeMsgpack(bytes.NewReader(b))
	assert.Error(t, err)

	_, err = DecodeMsgpack(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestMapping_SetKeepsPosition(t *testing.T) {
	m := MappingOf("a", 1, "b", 2)
	m.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	v, _ := m.Get("a")
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, m.Len())
}

func TestMapping_NilIsEmpty(t *testing.T) {
	var m *Mapping
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Keys())
	_, ok := m.Get("a")
	assert.False(t, ok)
	for range m.All() {
		t.Fatal("nil mapping yielded a pair")
	}
}

func TestMappingOf_Panics(t *testing.T) {
	assert.Panics(t, func() { MappingOf("a") })
	assert.Panics(t, func() { MappingOf(1, 2) })
}

func TestFromMap_SortsAndNests(t *testing.T) {
	m := FromMap(map[string]any{
		"b": 1,
		"a": map[string]any{"y": 1, "x": 2},
		"c": []any{map[string]any{"k": 1}},
	})

	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	v, _ := m.Get("a")
	nested, ok := v.(*Mapping)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, nested.Keys())
	v, _ = m.Get("c")
	assert.IsType(t, &Mapping{}, v.([]any)[0])
}

func TestAsSequence(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []any
		ok    bool
	}{
		{"any slice", []any{1, 2}, []any{1, 2}, true},
		{"typed slice", []int64{1, 2}, []any{int64(1), int64(2)}, true},
		{"array", [2]string{"a", "b"}, []any{"a", "b"}, true},
		{"string", "ab", nil, false},
		{"bytes", []byte("ab"), nil, false},
		{"nil", nil, nil, false},
		{"mapping", NewMapping(), nil, false},
		{"int", 5, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asSequence(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
