package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderType(t *testing.T) *TypeDescriptor {
	t.Helper()
	td, err := NewRecordType("Order", "id", Generated).
		Field("id", Scalar, IntegerValue).
		Field("reference", Scalar, StringValue).
		Field("total", Scalar, FloatValue).
		Field("paid", Scalar, BooleanValue).
		Field("placedAt", DateTime, AnyValue).
		ToOne("buyer", "Party").
		ToMany("lines", "Line").
		Cloneable().
		Build()
	require.NoError(t, err)
	return td
}

func TestRecord_SetKeepsOrder(t *testing.T) {
	r := NewRecord("Order")
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)

	assert.Equal(t, "Order", r.Type())
	assert.Equal(t, []string{"b", "a"}, r.Fields())
	assert.Equal(t, 3, r.Get("b"))
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
	assert.Nil(t, r.Get("c"))
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := NewRecord("Order")
	r.Set("reference", "PO-1")
	r.Set("lines", []any{"x"})

	dup := r.Clone()
	dup.Set("reference", "PO-2")
	lines := dup.Get("lines").([]any)
	dup.Set("lines", append(lines, "y"))

	assert.Equal(t, "PO-1", r.Get("reference"))
	assert.Len(t, r.Get("lines").([]any), 1)
	assert.Equal(t, r.Fields(), dup.Fields())
}

func TestRecord_StringOmitsValues(t *testing.T) {
	r := NewRecord("Order")
	r.Set("self", r)

	assert.Contains(t, r.String(), "Order")
	assert.Contains(t, r.String(), "self")
}

func TestRecordType_FieldKinds(t *testing.T) {
	td := orderType(t)
	r := td.New().(*Record)

	tests := []struct {
		field   string
		in      any
		want    any
		wantErr bool
	}{
		{"id", float64(3), int64(3), false},
		{"id", 3.5, nil, true},
		{"reference", "PO-1", "PO-1", false},
		{"reference", 12, nil, true},
		{"total", int64(10), float64(10), false},
		{"total", "ten", nil, true},
		{"paid", true, true, false},
		{"paid", "yes", nil, true},
		{"placedAt", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"reference", nil, nil, false},
	}
	for _, tt := range tests {
		fd, ok := td.Field(tt.field)
		require.True(t, ok, tt.field)
		err := fd.Accessor.Set(r, tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%s <- %v", tt.field, tt.in)
			continue
		}
		require.NoError(t, err, "%s <- %v", tt.field, tt.in)
		assert.Equal(t, tt.want, fd.Accessor.Get(r), tt.field)
	}
}

func TestRecordType_Associations(t *testing.T) {
	td := orderType(t)
	r := td.New().(*Record)
	buyer := NewRecord("Party")
	line := NewRecord("Line")

	one, _ := td.Association("buyer")
	require.NoError(t, one.One.Set(r, buyer))
	assert.Same(t, buyer, one.One.Get(r))

	many, _ := td.Association("lines")
	assert.Empty(t, many.Many.Members(r))
	require.NoError(t, many.Many.Add(r, line))
	members := many.Many.Members(r)
	require.Len(t, members, 1)
	assert.Same(t, line, members[0])

	// Members is a snapshot
	members[0] = nil
	assert.Same(t, line, many.Many.Members(r)[0])

	assert.Error(t, one.One.Set(&struct{}{}, buyer))
	assert.Error(t, many.Many.Add(&struct{}{}, line))
}

func TestRecordType_Clone(t *testing.T) {
	td := orderType(t)
	r := td.New().(*Record)
	r.Set("reference", "PO-1")

	dup, ok := td.Clone(r).(*Record)
	require.True(t, ok)
	assert.NotSame(t, r, dup)
	assert.Equal(t, "PO-1", dup.Get("reference"))
}

func TestRecordType_Invalid(t *testing.T) {
	_, err := NewRecordType("Order", "id", Generated).Field("reference", Scalar, StringValue).Build()

	var sve *SchemaValidationError
	require.ErrorAs(t, err, &sve)
	assert.Equal(t, "Order", sve.TypeName)

	_, err = NewRecordType("Order", "id", Generated).
		Field("id", Scalar, IntegerValue).
		Field("id", Scalar, IntegerValue).
		Build()
	assert.ErrorAs(t, err, &sve)

	_, err = NewRecordType("Order", "id", Generated).
		Field("id", Scalar, IntegerValue).
		ToOne("id", "Order").
		Build()
	assert.ErrorAs(t, err, &sve)
}

func TestCatalog_DescribeRecordInstance(t *testing.T) {
	c := NewCatalog()
	c.MustAdd(orderType(t))

	td, ok := c.DescribeInstance(NewRecord("Order"))
	require.True(t, ok)
	assert.Equal(t, "Order", td.Name)

	_, ok = c.DescribeInstance(NewRecord("Ghost"))
	assert.False(t, ok)
	_, ok = c.DescribeInstance(nil)
	assert.False(t, ok)
}
