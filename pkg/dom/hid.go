package dom

import (
	"fmt"
	"sync"
)

// HIDAttr is the attribute carrying a node's hydration ID.
const HIDAttr = "data-hid"

// HIDGenerator generates hydration IDs for interactive elements.
type HIDGenerator struct {
	counter uint32
	mu      sync.Mutex
}

// NewHIDGenerator creates a new HIDGenerator.
func NewHIDGenerator() *HIDGenerator {
	return &HIDGenerator{}
}

// Next returns the next hydration ID (e.g., "h1", "h2", ...).
func (g *HIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("h%d", g.counter)
}

// Reset resets the counter to 0.
func (g *HIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter = 0
}

// Current returns the current counter value without incrementing.
func (g *HIDGenerator) Current() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}

// IsInteractive reports whether any event listener is registered on n.
func (n *Node) IsInteractive() bool {
	for _, l := range n.listeners {
		if len(l) > 0 {
			return true
		}
	}
	return false
}

// AssignHIDs gives every interactive element under root an ID. Elements
// that already carry one keep it, so repeated calls are stable.
func AssignHIDs(root *Node, gen *HIDGenerator) {
	root.Walk(func(n *Node) bool {
		if n.Type == ElementNode && n.IsInteractive() && !n.HasAttribute(HIDAttr) {
			n.SetAttribute(HIDAttr, gen.Next())
		}
		return true
	})
}

// AssignHIDs assigns IDs to the document's interactive elements.
func (d *Document) AssignHIDs() {
	AssignHIDs(d.root, d.hids)
}

// CollectHIDs returns a map of HID to element for all elements with HIDs.
func CollectHIDs(root *Node) map[string]*Node {
	out := make(map[string]*Node)
	root.Walk(func(n *Node) bool {
		if v, ok := n.GetAttribute(HIDAttr); ok && n.Type == ElementNode {
			out[v] = n
		}
		return true
	})
	return out
}

// FindByHID finds the element with the given HID.
func FindByHID(root *Node, hid string) *Node {
	return root.Find(func(n *Node) bool {
		v, ok := n.GetAttribute(HIDAttr)
		return ok && n.Type == ElementNode && v == hid
	})
}

// ClearHIDs removes all HIDs under root.
func ClearHIDs(root *Node) {
	root.Walk(func(n *Node) bool {
		n.RemoveAttribute(HIDAttr)
		return true
	})
}
