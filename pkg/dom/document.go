package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrAlreadyDefined is returned when a custom element name is reused.
	ErrAlreadyDefined = errors.New("dom: element already defined")

	// ErrNotDefined is returned by WhenDefined when the context ends
	// before every name is defined.
	ErrNotDefined = errors.New("dom: element not defined")
)

// Definition holds custom element lifecycle callbacks.
type Definition struct {
	// Connected runs when an element with the defined name becomes
	// connected, or at Define time for elements already connected.
	Connected func(*Node)

	// Disconnected runs when the element leaves the document.
	Disconnected func(*Node)
}

// Document is the root of a host tree plus its custom element registry.
type Document struct {
	root *Node
	hids *HIDGenerator

	mu      sync.Mutex
	defs    map[string]Definition
	waiters map[string]chan struct{}

	observers []func(*Node)
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	d := &Document{
		defs:    make(map[string]Definition),
		waiters: make(map[string]chan struct{}),
		hids:    NewHIDGenerator(),
	}
	d.root = &Node{Type: DocumentNode, doc: d}
	return d
}

// Root returns the document node.
func (d *Document) Root() *Node { return d.root }

// Body returns the <body> element, or the document node if there is none.
func (d *Document) Body() *Node {
	if b := d.root.Find(func(n *Node) bool { return n.Tag == "body" }); b != nil {
		return b
	}
	return d.root
}

// GetElementByID returns the connected element with the given id.
func (d *Document) GetElementByID(id string) *Node {
	return d.root.GetElementByID(id)
}

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *Node {
	n := &Node{Type: ElementNode, Tag: strings.ToLower(tag), doc: d}
	if n.Tag == "template" {
		n.Content = d.CreateFragment()
	}
	return n
}

// CreateTextNode creates a detached text node.
func (d *Document) CreateTextNode(s string) *Node {
	return &Node{Type: TextNode, Data: s, doc: d}
}

// CreateComment creates a detached comment.
func (d *Document) CreateComment(s string) *Node {
	return &Node{Type: CommentNode, Data: s, doc: d}
}

// CreateFragment creates an empty fragment.
func (d *Document) CreateFragment() *Node {
	return &Node{Type: FragmentNode, doc: d}
}

// ───────────────────────── custom elements ─────────────────────────

// Define registers a custom element. Elements with that name already in
// the document are upgraded.
func (d *Document) Define(name string, def Definition) error {
	name = strings.ToLower(name)
	d.mu.Lock()
	if _, ok := d.defs[name]; ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyDefined, name)
	}
	d.defs[name] = def
	if ch, ok := d.waiters[name]; ok {
		close(ch)
		delete(d.waiters, name)
	}
	d.mu.Unlock()

	if def.Connected == nil {
		return nil
	}
	var found []*Node
	d.root.Walk(func(n *Node) bool {
		if n.Type == ElementNode && n.Tag == name {
			found = append(found, n)
		}
		return true
	})
	for _, n := range found {
		if n.IsConnected() {
			def.Connected(n)
		}
	}
	return nil
}

// IsDefined reports whether name has a definition.
func (d *Document) IsDefined(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.defs[strings.ToLower(name)]
	return ok
}

// WhenDefined blocks until every name is defined or ctx ends.
func (d *Document) WhenDefined(ctx context.Context, names ...string) error {
	for _, name := range names {
		name = strings.ToLower(name)
		d.mu.Lock()
		if _, ok := d.defs[name]; ok {
			d.mu.Unlock()
			continue
		}
		ch, ok := d.waiters[name]
		if !ok {
			ch = make(chan struct{})
			d.waiters[name] = ch
		}
		d.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrNotDefined, name, ctx.Err())
		}
	}
	return nil
}

func (d *Document) definition(tag string) (Definition, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	def, ok := d.defs[tag]
	return def, ok
}

// OnDisconnect registers fn to run for every element that leaves the
// document, in document order of the removed subtree.
func (d *Document) OnDisconnect(fn func(*Node)) {
	d.observers = append(d.observers, fn)
}

func (d *Document) connected(n *Node) {
	if d == nil {
		return
	}
	for _, el := range elements(n) {
		if !el.IsConnected() {
			continue
		}
		if def, ok := d.definition(el.Tag); ok && def.Connected != nil {
			def.Connected(el)
		}
	}
}

func (d *Document) disconnected(n *Node) {
	if d == nil {
		return
	}
	for _, el := range elements(n) {
		if def, ok := d.definition(el.Tag); ok && def.Disconnected != nil {
			def.Disconnected(el)
		}
		for _, fn := range d.observers {
			fn(el)
		}
	}
}

func elements(n *Node) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Type == ElementNode {
			out = append(out, c)
		}
		return true
	})
	return out
}
