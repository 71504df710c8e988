package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Catalog maintains the set of known entity types, addressable by name and, for
// struct-backed types, by Go type. A Catalog is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]*TypeDescriptor
	byType map[reflect.Type]*TypeDescriptor
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]*TypeDescriptor),
		byType: make(map[reflect.Type]*TypeDescriptor),
	}
}

// Add validates td and makes it available under td.Name. Adding a second
// descriptor under a name already bound to a different Go type fails.
func (c *Catalog) Add(td *TypeDescriptor) error {
	if td == nil {
		return fmt.Errorf("schema: nil type descriptor")
	}
	if err := td.index(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byName[td.Name]; ok && existing.GoType != td.GoType {
		return fmt.Errorf("type name %q already registered to %s", td.Name, goTypeName(existing.GoType))
	}
	c.byName[td.Name] = td
	if td.GoType != nil {
		c.byType[td.GoType] = td
	}
	return nil
}

// MustAdd is a helper that calls Add and panics if an error occurs.
// It is intended for use during application initialization.
func (c *Catalog) MustAdd(td *TypeDescriptor) {
	if err := c.Add(td); err != nil {
		panic(err)
	}
}

// Describe retrieves the descriptor registered under typeName.
func (c *Catalog) Describe(typeName string) (*TypeDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	td, ok := c.byName[typeName]
	return td, ok
}

// DescribeInstance retrieves the descriptor for a live instance: a *Record by its
// type name, anything else by its Go struct type.
func (c *Catalog) DescribeInstance(instance any) (*TypeDescriptor, bool) {
	if r, ok := instance.(*Record); ok {
		return c.Describe(r.Type())
	}
	t := reflect.TypeOf(instance)
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	td, ok := c.byType[t]
	return td, ok
}

// Types returns all registered descriptors sorted by name.
func (c *Catalog) Types() []*TypeDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]*TypeDescriptor, 0, len(c.byName))
	for _, td := range c.byName {
		result = append(result, td)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Validate checks that every association target names a registered type.
// Targets may be registered in any order, so this runs once all types are added.
func (c *Catalog) Validate() error {
	for _, td := range c.Types() {
		for _, a := range td.Associations {
			if _, ok := c.Describe(a.Target); !ok {
				return &SchemaValidationError{
					TypeName: td.Name,
					Message:  fmt.Sprintf("association %q targets unknown type %q", a.Name, a.Target),
				}
			}
		}
	}
	return nil
}

func goTypeName(t reflect.Type) string {
	if t == nil {
		return "record"
	}
	return t.Name()
}
