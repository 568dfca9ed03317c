package directive

import (
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/scope"
)

// NodeState is the engine bookkeeping attached to a host node.
type NodeState struct {
	// Scope is the composed scope handed to the node's descendants.
	Scope *scope.Scope

	// HasData marks nodes that own component or inline data. Event
	// handlers emit from the nearest such node.
	HasData bool

	// Component names the structural component bound to the node.
	Component string

	// Owner holds the node's component effects and cleanups.
	Owner *reactive.Owner

	// Hydrated is set once the node's data has been composed.
	Hydrated bool

	// Bound is set once the node's directives have been bound.
	Bound bool

	// Mounted is set while a structural component's mount hooks have run
	// and its unmount hooks have not.
	Mounted bool
}

// StateOf returns the node's state, or nil.
func StateOf(n *dom.Node) *NodeState {
	st, _ := n.State.(*NodeState)
	return st
}

// EnsureState returns the node's state, creating it if needed.
func EnsureState(n *dom.Node) *NodeState {
	if st := StateOf(n); st != nil {
		return st
	}
	st := &NodeState{}
	n.State = st
	return st
}

// Emitter returns a function dispatching a bubbling custom event from el.
func Emitter(el *dom.Node) func(name string, detail any) {
	return func(name string, detail any) {
		el.Dispatch(dom.NewCustomEvent(name, detail))
	}
}

// nearestEmitter finds the closest ancestor-or-self that owns data.
func nearestEmitter(el *dom.Node) func(string, any) {
	owner := el.Closest(func(n *dom.Node) bool {
		st := StateOf(n)
		return st != nil && st.HasData
	})
	if owner == nil {
		return nil
	}
	return Emitter(owner)
}
