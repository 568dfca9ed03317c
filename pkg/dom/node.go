package dom

import (
	"strings"
)

// NodeType is the node kind discriminator.
type NodeType uint8

const (
	ElementNode  NodeType = iota // <div>, <template>, ...
	TextNode                     // character data
	CommentNode                  // <!-- ... -->
	FragmentNode                 // parentless container, template content
	DocumentNode                 // tree root
	DoctypeNode                  // <!DOCTYPE html>
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case CommentNode:
		return "Comment"
	case FragmentNode:
		return "Fragment"
	case DocumentNode:
		return "Document"
	case DoctypeNode:
		return "Doctype"
	default:
		return "Unknown"
	}
}

// Attr is a single attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is a node of the host tree.
type Node struct {
	Type NodeType
	Tag  string // lower-case element name
	Data string // text, comment or doctype content

	// Content is the document fragment of a <template> element.
	Content *Node

	// State is reserved for the engine. It is not cloned.
	State any

	attrs []Attr

	parent, firstChild, lastChild, prevSibling, nextSibling *Node

	doc       *Document
	listeners map[string][]*listener
	validity  string
}

// ───────────────────────── construction ─────────────────────────

// OwnerDocument returns the document the node was created for.
func (n *Node) OwnerDocument() *Document {
	return n.doc
}

// Clone copies the node. Attributes and template content are copied;
// listeners and State are not. deep also copies descendants.
func (n *Node) Clone(deep bool) *Node {
	c := &Node{
		Type: n.Type,
		Tag:  n.Tag,
		Data: n.Data,
		doc:  n.doc,
	}
	if len(n.attrs) > 0 {
		c.attrs = append([]Attr(nil), n.attrs...)
	}
	if n.Content != nil {
		c.Content = n.Content.Clone(true)
	}
	if deep {
		for ch := n.firstChild; ch != nil; ch = ch.nextSibling {
			c.appendRaw(ch.Clone(true))
		}
	}
	return c
}

// ───────────────────────── navigation ─────────────────────────

// Parent returns the parent node.
func (n *Node) Parent() *Node { return n.parent }

// FirstChild returns the first child node.
func (n *Node) FirstChild() *Node { return n.firstChild }

// LastChild returns the last child node.
func (n *Node) LastChild() *Node { return n.lastChild }

// NextSibling returns the next sibling node.
func (n *Node) NextSibling() *Node { return n.nextSibling }

// PrevSibling returns the previous sibling node.
func (n *Node) PrevSibling() *Node { return n.prevSibling }

// NextElementSibling returns the next sibling that is an element.
func (n *Node) NextElementSibling() *Node {
	for s := n.nextSibling; s != nil; s = s.nextSibling {
		if s.Type == ElementNode {
			return s
		}
	}
	return nil
}

// ChildNodes returns a snapshot of the child list.
func (n *Node) ChildNodes() []*Node {
	var out []*Node
	for c := n.firstChild; c != nil; c = c.nextSibling {
		out = append(out, c)
	}
	return out
}

// Children returns a snapshot of the element children.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.firstChild; c != nil; c = c.nextSibling {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Root returns the topmost ancestor.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// IsConnected reports whether the node is attached to a document.
func (n *Node) IsConnected() bool {
	return n.Root().Type == DocumentNode
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for o := other; o != nil; o = o.parent {
		if o == n {
			return true
		}
	}
	return false
}

// Closest returns the nearest ancestor-or-self element matching fn.
func (n *Node) Closest(fn func(*Node) bool) *Node {
	for o := n; o != nil; o = o.parent {
		if o.Type == ElementNode && fn(o) {
			return o
		}
	}
	return nil
}

// Walk visits n and its descendants in document order. Returning false
// from fn skips the node's children. Template content is not visited.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.firstChild; c != nil; {
		next := c.nextSibling
		c.Walk(fn)
		c = next
	}
}

// Find returns the first node in document order matching fn.
func (n *Node) Find(fn func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if fn(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// GetElementByID returns the descendant element with the given id.
func (n *Node) GetElementByID(id string) *Node {
	return n.Find(func(c *Node) bool {
		v, ok := c.GetAttribute("id")
		return c.Type == ElementNode && ok && v == id
	})
}

// ───────────────────────── attributes ─────────────────────────

// GetAttribute returns the attribute value and whether it is present.
func (n *Node) GetAttribute(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attr returns the attribute value, or "" when absent.
func (n *Node) Attr(name string) string {
	v, _ := n.GetAttribute(name)
	return v
}

// HasAttribute reports whether the attribute is present.
func (n *Node) HasAttribute(name string) bool {
	_, ok := n.GetAttribute(name)
	return ok
}

// SetAttribute sets an attribute, keeping its position if it exists.
func (n *Node) SetAttribute(name, value string) {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
}

// RemoveAttribute removes an attribute.
func (n *Node) RemoveAttribute(name string) {
	for i, a := range n.attrs {
		if a.Name == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			return
		}
	}
}

// Attributes returns a snapshot of the attributes in source order.
func (n *Node) Attributes() []Attr {
	return append([]Attr(nil), n.attrs...)
}

// ───────────────────────── text ─────────────────────────

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	switch n.Type {
	case TextNode, CommentNode:
		return n.Data
	}
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Type == TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// SetTextContent replaces the children with a single text node.
func (n *Node) SetTextContent(s string) {
	switch n.Type {
	case TextNode, CommentNode:
		n.Data = s
		return
	}
	if f := n.firstChild; f != nil && f.Type == TextNode && f.nextSibling == nil {
		f.Data = s
		return
	}
	n.RemoveChildren()
	if s != "" {
		n.AppendChild(&Node{Type: TextNode, Data: s, doc: n.doc})
	}
}
