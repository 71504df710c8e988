package schema

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status string

func TestToInt64(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{int(5), 5, false},
		{int8(-3), -3, false},
		{uint32(7), 7, false},
		{float64(42), 42, false},
		{float32(2), 2, false},
		{1.5, 0, true},
		{uint64(math.MaxUint64), 0, true},
		{"5", 0, true},
		{nil, 0, true},
	}
	for _, tt := range tests {
		got, err := ToInt64(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestToFloat64(t *testing.T) {
	f, err := ToFloat64(int64(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	_, err = ToFloat64(true)
	assert.Error(t, err)
}

func TestConvertValue(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)
	tests := []struct {
		name    string
		in      any
		target  reflect.Type
		want    any
		wantErr bool
	}{
		{"assignable", "x", reflect.TypeFor[string](), "x", false},
		{"nil to zero", nil, reflect.TypeFor[int](), 0, false},
		{"int64 to int", int64(9), reflect.TypeFor[int](), 9, false},
		{"float to int32", float64(9), reflect.TypeFor[int32](), int32(9), false},
		{"overflow int8", int64(300), reflect.TypeFor[int8](), nil, true},
		{"negative to uint", int64(-1), reflect.TypeFor[uint](), nil, true},
		{"int to uint16", 12, reflect.TypeFor[uint16](), uint16(12), false},
		{"int to float32", 2, reflect.TypeFor[float32](), float32(2), false},
		{"named string", "open", reflect.TypeFor[status](), status("open"), false},
		{"int to string", 65, reflect.TypeFor[string](), nil, true},
		{"time passthrough", now, reflect.TypeFor[time.Time](), now, false},
		{"box pointer", now, reflect.TypeFor[*time.Time](), &now, false},
		{"deref pointer", &now, reflect.TypeFor[time.Time](), now, false},
		{"string to bool", "true", reflect.TypeFor[bool](), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertValue(tt.in, tt.target)
			if tt.wantErr {
				var ce *ConversionError
				assert.ErrorAs(t, err, &ce)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert_Generic(t *testing.T) {
	n, err := Convert[int64](float64(4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	p, err := Convert[*string](nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = Convert[bool](1)
	assert.Error(t, err)
}

func TestIsZero(t *testing.T) {
	var nilPtr *int
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(nilPtr))
	assert.True(t, IsZero(int64(0)))
	assert.True(t, IsZero(""))
	assert.False(t, IsZero(int64(1)))
	assert.False(t, IsZero("x"))
}

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, IdentityKey("Widget", int64(7)), IdentityKey("Widget", float64(7)))
	assert.Equal(t, IdentityKey("Widget", 7), IdentityKey("Widget", "7"))
	assert.NotEqual(t, IdentityKey("Widget", 7), IdentityKey("Gadget", 7))
}

func TestIdentityText(t *testing.T) {
	tests := []struct {
		name string
		id   any
		want string
	}{
		{"int64", int64(1234567), "1234567"},
		{"large float64", float64(1234567), "1234567"},
		{"huge float64", float64(1e15), "1000000000000000"},
		{"float32", float32(42), "42"},
		{"uint8", uint8(9), "9"},
		{"fractional float", 2.5, "2.5"},
		{"small fractional float", 0.0000001, "0.0000001"},
		{"string", "A1", "A1"},
		{"numeric string", "1e6", "1e6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentityText(tt.id))
		})
	}
	assert.Equal(t, IdentityKey("Widget", int64(1234567)), IdentityKey("Widget", float64(1234567)))
}

type seqEntity struct {
	ID int64 `hydrate:"id,generated"`
}

type uuidEntity struct {
	ID string `hydrate:"id,generated"`
}

func TestAssignIdentifier(t *testing.T) {
	seq, err := ExtractTypeDescriptor(reflect.TypeFor[seqEntity]())
	require.NoError(t, err)
	next := int64(40)
	counter := func() (int64, error) {
		next++
		return next, nil
	}

	e := &seqEntity{}
	id, err := AssignIdentifier(seq, e, counter)
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)
	assert.Equal(t, int64(41), e.ID)

	u, err := ExtractTypeDescriptor(reflect.TypeFor[uuidEntity]())
	require.NoError(t, err)
	ue := &uuidEntity{}
	id, err = AssignIdentifier(u, ue, counter)
	require.NoError(t, err)
	_, perr := uuid.Parse(ue.ID)
	assert.NoError(t, perr)
	assert.Equal(t, ue.ID, id)
	assert.Equal(t, int64(41), next, "string identifiers do not draw from the sequence")
}
