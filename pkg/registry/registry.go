// Package registry holds the named components, form schemas and stores
// an Engine hydrates against.
//
// A Registry replaces ambient global tables: it is created with the
// engine, passed to it by reference and cleared with Reset.
package registry

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/form"
)

// ErrTemplateMissing is returned when a custom element component has no
// <template> with a matching id.
var ErrTemplateMissing = errors.New("registry: component template missing")

// SetupContext is handed to a component's setup function.
type SetupContext struct {
	// Props holds the evaluated x-props object. Values that are signals
	// are passed through unchanged.
	Props map[string]any

	// El is the element the component is bound to.
	El *dom.Node

	// Emit dispatches a bubbling custom event from El.
	Emit func(name string, detail any)

	// OnCleanup registers fn to run when the component is torn down.
	OnCleanup func(fn func())
}

// SetupFunc builds a component's data from its context.
type SetupFunc func(SetupContext) map[string]any

// Descriptor describes one component. Components whose name contains a
// hyphen are structural: they are backed by a custom element whose
// content is cloned from Template.
type Descriptor struct {
	Name     string
	Setup    SetupFunc
	Template *dom.Node

	// OnMounted and OnUnmounted run when a structural element is
	// connected to and detached from the document.
	OnMounted   func(el *dom.Node)
	OnUnmounted func(el *dom.Node)
}

// Structural reports whether the component is backed by a custom element.
func (d *Descriptor) Structural() bool {
	return IsStructural(d.Name)
}

// Run calls the setup function, or returns the props when there is none.
func (d *Descriptor) Run(ctx SetupContext) map[string]any {
	if d.Setup == nil {
		return ctx.Props
	}
	return d.Setup(ctx)
}

// IsStructural reports whether name denotes a custom element.
func IsStructural(name string) bool {
	return strings.Contains(name, "-")
}

// Registry is the set of named registrations for one engine.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*Descriptor
	forms      map[string]*form.Schema
	stores     map[string]any
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Reset removes every registration.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = make(map[string]*Descriptor)
	r.forms = make(map[string]*form.Schema)
	r.stores = make(map[string]any)
}

// AddComponent registers d, replacing any component of the same name.
func (r *Registry) AddComponent(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[strings.ToLower(d.Name)] = d
}

// Component looks up a component by name.
func (r *Registry) Component(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.components[strings.ToLower(name)]
	return d, ok
}

// StructuralNames returns the sorted names of custom element components.
func (r *Registry) StructuralNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, d := range r.components {
		if d.Structural() {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// AddForm registers a form schema under its name.
func (r *Registry) AddForm(s *form.Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[s.Name] = s
}

// Form looks up a form schema by name.
func (r *Registry) Form(name string) (*form.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.forms[name]
	return s, ok
}

// SetStore stores the data of a named store.
func (r *Registry) SetStore(name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = data
}

// Store looks up a store by name.
func (r *Registry) Store(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.stores[name]
	return v, ok
}

// Stores returns a copy of all stores keyed by name.
func (r *Registry) Stores() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.stores)
}

// Counts returns the number of components, forms and stores.
func (r *Registry) Counts() (components, forms, stores int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components), len(r.forms), len(r.stores)
}
