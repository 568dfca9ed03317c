package dom

// AppendChild appends c as the last child of n. A fragment is emptied
// into n instead.
func (n *Node) AppendChild(c *Node) *Node {
	return n.InsertBefore(c, nil)
}

// InsertBefore inserts c before ref, or appends it when ref is nil.
// A fragment contributes its children. Moving a node between two
// connected positions fires no lifecycle callbacks.
func (n *Node) InsertBefore(c, ref *Node) *Node {
	if c == nil || c == ref {
		return c
	}
	if ref != nil && ref.parent != n {
		panic("dom: InsertBefore reference is not a child")
	}
	if c.Contains(n) {
		panic("dom: InsertBefore would create a cycle")
	}
	if c.Type == FragmentNode {
		for _, ch := range c.ChildNodes() {
			n.InsertBefore(ch, ref)
		}
		return c
	}

	doc := c.connectedDocument()
	wasConnected := doc != nil
	if c.parent != nil {
		c.parent.unlink(c)
	}
	n.link(c, ref)

	nowConnected := n.IsConnected()
	switch {
	case !wasConnected && nowConnected:
		n.connectedDocument().connected(c)
	case wasConnected && !nowConnected:
		doc.disconnected(c)
	}
	return c
}

// RemoveChild detaches c from n.
func (n *Node) RemoveChild(c *Node) *Node {
	if c.parent != n {
		panic("dom: RemoveChild argument is not a child")
	}
	doc := n.connectedDocument()
	n.unlink(c)
	if doc != nil {
		doc.disconnected(c)
	}
	return c
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

// RemoveChildren detaches all children of n.
func (n *Node) RemoveChildren() {
	for n.firstChild != nil {
		n.RemoveChild(n.firstChild)
	}
}

// ReplaceWith puts r in n's place.
func (n *Node) ReplaceWith(r *Node) {
	p := n.parent
	if p == nil || r == n {
		return
	}
	p.InsertBefore(r, n)
	p.RemoveChild(n)
}

// After inserts c immediately after n.
func (n *Node) After(c *Node) {
	if n.parent != nil {
		n.parent.InsertBefore(c, n.nextSibling)
	}
}

func (n *Node) connectedDocument() *Document {
	r := n.Root()
	if r.Type != DocumentNode {
		return nil
	}
	return r.doc
}

// appendRaw links without lifecycle notifications. Used while building
// detached trees.
func (n *Node) appendRaw(c *Node) {
	n.link(c, nil)
}

func (n *Node) link(c, ref *Node) {
	c.parent = n
	if ref == nil {
		c.prevSibling = n.lastChild
		c.nextSibling = nil
		if n.lastChild != nil {
			n.lastChild.nextSibling = c
		} else {
			n.firstChild = c
		}
		n.lastChild = c
		return
	}
	c.nextSibling = ref
	c.prevSibling = ref.prevSibling
	if ref.prevSibling != nil {
		ref.prevSibling.nextSibling = c
	} else {
		n.firstChild = c
	}
	ref.prevSibling = c
}

func (n *Node) unlink(c *Node) {
	if c.prevSibling != nil {
		c.prevSibling.nextSibling = c.nextSibling
	} else {
		n.firstChild = c.nextSibling
	}
	if c.nextSibling != nil {
		c.nextSibling.prevSibling = c.prevSibling
	} else {
		n.lastChild = c.prevSibling
	}
	c.parent, c.prevSibling, c.nextSibling = nil, nil, nil
}
