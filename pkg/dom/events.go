package dom

// Event is dispatched to listeners along the target's ancestor path.
type Event struct {
	Type          string
	Target        *Node
	CurrentTarget *Node

	// Detail carries the payload of custom events.
	Detail any

	// Key is the key name of keyboard events.
	Key string

	bubbles   bool
	prevented bool
	stopped   bool
}

// NewEvent creates a bubbling event.
func NewEvent(typ string) *Event {
	return &Event{Type: typ, bubbles: true}
}

// NewCustomEvent creates a bubbling event carrying detail.
func NewCustomEvent(typ string, detail any) *Event {
	return &Event{Type: typ, Detail: detail, bubbles: true}
}

// NoBubble stops the event from propagating past its target.
func (e *Event) NoBubble() *Event {
	e.bubbles = false
	return e
}

// PreventDefault marks the default action as cancelled.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// StopPropagation stops the event after the current node.
func (e *Event) StopPropagation() { e.stopped = true }

// ListenerOptions configure AddEventListener.
type ListenerOptions struct {
	// Once removes the listener after its first call.
	Once bool
}

type listener struct {
	fn      func(*Event)
	once    bool
	removed bool
}

// AddEventListener registers fn for events of type typ. The returned
// function removes it.
func (n *Node) AddEventListener(typ string, fn func(*Event), opts ...ListenerOptions) (remove func()) {
	l := &listener{fn: fn}
	for _, o := range opts {
		l.once = l.once || o.Once
	}
	if n.listeners == nil {
		n.listeners = make(map[string][]*listener)
	}
	n.listeners[typ] = append(n.listeners[typ], l)
	return func() { n.removeListener(typ, l) }
}

// ListenerCount returns the number of listeners for typ.
func (n *Node) ListenerCount(typ string) int {
	return len(n.listeners[typ])
}

func (n *Node) removeListener(typ string, l *listener) {
	l.removed = true
	list := n.listeners[typ]
	for i, x := range list {
		if x == l {
			n.listeners[typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Dispatch delivers e to n and, if the event bubbles, to each ancestor.
// It returns false if a listener called PreventDefault.
func (n *Node) Dispatch(e *Event) bool {
	e.Target = n
	for cur := n; cur != nil; cur = cur.parent {
		cur.fire(e)
		if e.stopped || !e.bubbles {
			break
		}
	}
	e.CurrentTarget = nil
	return !e.prevented
}

func (n *Node) fire(e *Event) {
	list := n.listeners[e.Type]
	if len(list) == 0 {
		return
	}
	e.CurrentTarget = n
	for _, l := range append([]*listener(nil), list...) {
		if l.removed {
			continue
		}
		if l.once {
			n.removeListener(e.Type, l)
		}
		l.fn(e)
	}
}
