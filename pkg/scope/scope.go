// Package scope holds the layered symbol tables directive expressions are
// evaluated against.
//
// A Scope is an ordered layer of names over an optional parent. Lookups
// walk from the innermost layer outwards, so a descendant's own data
// shadows same-named keys of its ancestors. Extending a scope never mutates
// it; Merge is the one in-place update and is reserved for list items whose
// key survives a re-render.
package scope

import (
	"sort"

	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/reactive"
)

// Scope is one layer of bindings plus a parent pointer.
type Scope struct {
	parent *Scope
	keys   []string
	vals   map[string]any
}

// New creates a root scope from values. Keys of a Go map are added in
// sorted order.
func New(values map[string]any) *Scope {
	return (*Scope)(nil).Extend(values)
}

// FromObject creates a root scope holding obj's entries in order.
func FromObject(obj *expr.Object) *Scope {
	return (*Scope)(nil).ExtendObject(obj)
}

// Extend returns a child scope with values as its own layer.
func (s *Scope) Extend(values map[string]any) *Scope {
	c := &Scope{parent: s, vals: make(map[string]any, len(values))}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.set(k, values[k])
	}
	return c
}

// ExtendObject returns a child scope with obj's entries as its own layer.
func (s *Scope) ExtendObject(obj *expr.Object) *Scope {
	c := &Scope{parent: s, vals: make(map[string]any)}
	if obj != nil {
		obj.Range(func(k string, v any) bool {
			c.set(k, v)
			return true
		})
	}
	return c
}

// With returns a child scope holding a single binding.
func (s *Scope) With(name string, value any) *Scope {
	c := &Scope{parent: s, vals: make(map[string]any, 1)}
	c.set(name, value)
	return c
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope {
	if s == nil {
		return nil
	}
	return s.parent
}

func (s *Scope) set(k string, v any) {
	if _, ok := s.vals[k]; !ok {
		s.keys = append(s.keys, k)
	}
	s.vals[k] = v
}

// Lookup implements expr.Bindings.
func (s *Scope) Lookup(name string) (any, bool) {
	for l := s; l != nil; l = l.parent {
		if v, ok := l.vals[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Own returns a binding of this layer only.
func (s *Scope) Own(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.vals[name]
	return v, ok
}

// Assign implements expr.Bindings. The layer that owns name is updated;
// an unknown name is added to the innermost layer.
func (s *Scope) Assign(name string, value any) bool {
	if s == nil {
		return false
	}
	for l := s; l != nil; l = l.parent {
		if _, ok := l.vals[name]; ok {
			l.vals[name] = value
			return true
		}
	}
	s.set(name, value)
	return true
}

// Merge updates this layer in place. A slot holding a writable cell keeps
// its identity and receives the new value; other slots are replaced.
func (s *Scope) Merge(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := values[k]
		if cur, ok := s.vals[k].(reactive.WritableCell); ok && !reactive.IsCell(v) {
			if err := cur.SetAny(v); err == nil {
				continue
			}
		}
		s.set(k, v)
	}
}

// Keys returns the own layer's names in insertion order.
func (s *Scope) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Flatten returns every visible binding, inner layers winning.
func (s *Scope) Flatten() map[string]any {
	out := make(map[string]any)
	var layers []*Scope
	for l := s; l != nil; l = l.parent {
		layers = append(layers, l)
	}
	for i := len(layers) - 1; i >= 0; i-- {
		for k, v := range layers[i].vals {
			out[k] = v
		}
	}
	return out
}

// Depth returns the number of layers.
func (s *Scope) Depth() int {
	n := 0
	for l := s; l != nil; l = l.parent {
		n++
	}
	return n
}

var _ expr.Bindings = (*Scope)(nil)
