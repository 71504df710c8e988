package hydrate_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CaliLuke/go-hydrate/hydrate"
	"github.com/CaliLuke/go-hydrate/memory"
	"github.com/CaliLuke/go-hydrate/schema"
)

// ---------------------------------------------------------------------------
// Test models
// ---------------------------------------------------------------------------

type Customer struct {
	ID   int64  `hydrate:"id,generated"`
	Name string `hydrate:"name"`
}

type Tag struct {
	ID    int64  `hydrate:"id,generated"`
	Label string `hydrate:"label"`
}

type Widget struct {
	ID        int64
	Name      string
	Count     int
	Price     float64
	MadeOn    time.Time
	OpensAt   time.Time
	CreatedAt time.Time
	Code      string
	Owner     *Customer
	Supplier  *Supplier
	Tags      []*Tag

	codeWrites int
}

// SetCode upper-cases codes and counts calls.
func (w *Widget) SetCode(v any) error {
	s, _ := v.(string)
	w.Code = strings.ToUpper(s)
	w.codeWrites++
	return nil
}

// Sku uses caller-supplied identifiers and is not cloneable.
type Sku struct {
	Code  string `hydrate:"code,id"`
	Title string `hydrate:"title"`
}

// Supplier is lazily loaded: its name is only available after Load.
type Supplier struct {
	ID     int64  `hydrate:"id,generated"`
	Name   string `hydrate:"name"`
	loaded bool
	loads  int
	name   string
}

func (s *Supplier) Loaded() bool { return s.loaded }

func (s *Supplier) Load(ctx context.Context) error {
	s.loaded = true
	s.loads++
	s.Name = s.name
	return nil
}

// Node references itself, for depth tests.
type Node struct {
	ID     int64  `hydrate:"id,generated"`
	Label  string `hydrate:"label"`
	Parent *Node  `hydrate:"parent,one"`
}

func widgetType() *schema.TypeDescriptor {
	return schema.NewType[Widget]("Widget", "id", schema.Generated).
		Field("id", schema.Scalar, schema.Prop(func(w *Widget) *int64 { return &w.ID })).
		Field("name", schema.Scalar, schema.Prop(func(w *Widget) *string { return &w.Name })).
		Field("count", schema.Scalar, schema.Prop(func(w *Widget) *int { return &w.Count })).
		Field("price", schema.Scalar, schema.Prop(func(w *Widget) *float64 { return &w.Price })).
		Field("madeOn", schema.Date, schema.Prop(func(w *Widget) *time.Time { return &w.MadeOn })).
		Field("opensAt", schema.Time, schema.Prop(func(w *Widget) *time.Time { return &w.OpensAt })).
		Field("createdAt", schema.DateTime, schema.Prop(func(w *Widget) *time.Time { return &w.CreatedAt })).
		Field("code", schema.Scalar, schema.Prop(func(w *Widget) *string { return &w.Code })).
		WithSetter("code", func(w *Widget, v any) error { return w.SetCode(v) }).
		ToOne("owner", "Customer", schema.Ref(func(w *Widget) **Customer { return &w.Owner })).
		ToOne("supplier", "Supplier", schema.Ref(func(w *Widget) **Supplier { return &w.Supplier })).
		ToMany("tags", "Tag", schema.Refs(func(w *Widget) *[]*Tag { return &w.Tags })).
		Cloneable().
		MustBuild()
}

type fixture struct {
	ctx      context.Context
	catalog  *schema.Catalog
	session  *memory.Session
	hydrator *hydrate.Hydrator
}

func newFixture(t *testing.T, opts ...hydrate.Option) *fixture {
	t.Helper()
	c := schema.NewCatalog()
	c.MustAdd(widgetType())
	schema.MustRegister[Customer](c)
	schema.MustRegister[Tag](c)
	schema.MustRegister[Sku](c)
	schema.MustRegister[Supplier](c)
	schema.MustRegister[Node](c)
	require.NoError(t, c.Validate())

	s := memory.New(c)
	return &fixture{
		ctx:      context.Background(),
		catalog:  c,
		session:  s,
		hydrator: hydrate.New(c, s, opts...),
	}
}

func newRecordFixture(c *schema.Catalog) *fixture {
	s := memory.New(c)
	return &fixture{
		ctx:      context.Background(),
		catalog:  c,
		session:  s,
		hydrator: hydrate.New(c, s),
	}
}

// persist stores instances and clears the change log.
func (f *fixture) persist(t *testing.T, instances ...any) {
	t.Helper()
	for _, inst := range instances {
		require.NoError(t, f.session.Persist(f.ctx, inst))
	}
	f.session.ResetChanges()
}

func (f *fixture) widget(t *testing.T, data *hydrate.Mapping, clone bool) *Widget {
	t.Helper()
	w, err := hydrate.As[Widget](f.ctx, f.hydrator, "Widget", data, clone)
	require.NoError(t, err)
	return w
}

func changedFields(changes []hydrate.Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Field
	}
	return out
}
