package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaliLuke/go-hydrate/hydrate"
	"github.com/CaliLuke/go-hydrate/schema"
)

type account struct {
	ID    int64  `hydrate:"id,generated"`
	Owner string `hydrate:"owner"`
}

type ticket struct {
	Key   string `hydrate:"key,id,generated"`
	Title string `hydrate:"title"`
}

type plate struct {
	Number string `hydrate:"number,id"`
}

type lazy struct {
	ID     int64 `hydrate:"id,generated"`
	loaded bool
	fail   error
}

func (l *lazy) Loaded() bool { return l.loaded }

func (l *lazy) Load(ctx context.Context) error {
	if l.fail != nil {
		return l.fail
	}
	l.loaded = true
	return nil
}

func newCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	c := schema.NewCatalog()
	require.NoError(t, schema.Register[account](c, schema.TypeName("Account"), schema.WithClone()))
	require.NoError(t, schema.Register[ticket](c, schema.TypeName("Ticket")))
	require.NoError(t, schema.Register[plate](c, schema.TypeName("Plate")))
	require.NoError(t, schema.Register[lazy](c, schema.TypeName("Lazy")))
	return c
}

func TestPersist_GeneratesSequentialIntegers(t *testing.T) {
	ctx := context.Background()
	s := New(newCatalog(t))

	a, b := &account{}, &account{}
	require.NoError(t, s.Persist(ctx, a))
	require.NoError(t, s.Persist(ctx, b))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.True(t, s.Contains(a))

	found, err := s.Find(ctx, "Account", int64(2))
	require.NoError(t, err)
	assert.Same(t, b, found)
}

func TestPersist_GeneratesUUIDForStringIdentifiers(t *testing.T) {
	ctx := context.Background()
	s := New(newCatalog(t))

	tk := &ticket{Title: "broken"}
	require.NoError(t, s.Persist(ctx, tk))

	assert.Len(t, tk.Key, 36)
	found, err := s.Find(ctx, "Ticket", tk.Key)
	require.NoError(t, err)
	assert.Same(t, tk, found)
}

func TestPersist_KeepsExistingIdentifier(t *testing.T) {
	ctx := context.Background()
	s := New(newCatalog(t))

	a := &account{ID: 42}
	require.NoError(t, s.Persist(ctx, a))
	assert.Equal(t, int64(42), a.ID)

	// persisting twice is a no-op
	require.NoError(t, s.Persist(ctx, a))

	// a clone holding a taken identifier gets a fresh one
	clone := &account{ID: 42}
	require.NoError(t, s.Persist(ctx, clone))
	assert.Equal(t, int64(1), clone.ID)

	require.NoError(t, s.Persist(ctx, &plate{Number: "X"}))
	assert.Error(t, s.Persist(ctx, &plate{Number: "X"}), "caller-supplied identifiers must be unique")
}

func TestPersist_RequiresCallerIdentifier(t *testing.T) {
	ctx := context.Background()
	s := New(newCatalog(t))

	assert.Error(t, s.Persist(ctx, &plate{}))
	require.NoError(t, s.Persist(ctx, &plate{Number: "AB-123"}))

	assert.Error(t, s.Persist(ctx, &struct{}{}), "unregistered type")
}

func TestFind_Missing(t *testing.T) {
	s := New(newCatalog(t))

	found, err := s.Find(context.Background(), "Account", int64(7))

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFind_NormalisesNumericIdentifiers(t *testing.T) {
	ctx := context.Background()
	s := New(newCatalog(t))
	a := &account{}
	require.NoError(t, s.Persist(ctx, a))

	found, err := s.Find(ctx, "Account", float64(1))
	require.NoError(t, err)
	assert.Same(t, a, found)
}

func TestFind_LoadsLazyInstances(t *testing.T) {
	ctx := context.Background()
	s := New(newCatalog(t))
	l := &lazy{}
	require.NoError(t, s.Persist(ctx, l))

	found, err := s.Find(ctx, "Lazy", l.ID)
	require.NoError(t, err)
	assert.True(t, found.(*lazy).loaded)

	broken := &lazy{fail: errors.New("disk on fire")}
	require.NoError(t, s.Persist(ctx, broken))
	_, err = s.Find(ctx, "Lazy", broken.ID)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestFind_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(newCatalog(t))

	_, err := s.Find(ctx, "Account", int64(1))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAllocate(t *testing.T) {
	s := New(newCatalog(t))

	inst, err := s.Allocate(context.Background(), "Account")
	require.NoError(t, err)
	assert.IsType(t, &account{}, inst)

	_, err = s.Allocate(context.Background(), "Nope")
	var unknown *hydrate.UnknownTypeError
	assert.ErrorAs(t, err, &unknown)
}

func TestClone(t *testing.T) {
	ctx := context.Background()
	s := New(newCatalog(t))
	a := &account{Owner: "ada"}
	require.NoError(t, s.Persist(ctx, a))

	dup, err := s.Clone(ctx, a)
	require.NoError(t, err)
	assert.NotSame(t, a, dup)
	assert.Equal(t, a, dup)
	assert.False(t, s.Contains(dup))

	_, err = s.Clone(ctx, &ticket{})
	assert.ErrorIs(t, err, hydrate.ErrNotCloneable)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := New(newCatalog(t))
	a := &account{}
	require.NoError(t, s.Persist(ctx, a))

	s.Remove(a)

	assert.False(t, s.Contains(a))
	found, err := s.Find(ctx, "Account", a.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestChanges(t *testing.T) {
	s := New(newCatalog(t))
	a := &account{}

	s.NotifyChanged(a, "owner", "", "ada")
	s.NotifyChanged(a, "owner", "ada", "bob")

	changes := s.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, hydrate.Change{Instance: a, Field: "owner", Old: "ada", New: "bob"}, changes[1])

	changes[0].Field = "mutated"
	assert.Equal(t, "owner", s.Changes()[0].Field, "Changes returns a copy")

	s.ResetChanges()
	assert.Empty(t, s.Changes())
}
