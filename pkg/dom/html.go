package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	hn, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := NewDocument()
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if n := d.convert(c); n != nil {
			d.root.appendRaw(n)
		}
	}
	return d, nil
}

// ParseString reads a complete HTML document from s.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseFragment parses markup in a <body> context into a detached
// fragment owned by d.
func (d *Document) ParseFragment(markup string) (*Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, err
	}
	frag := d.CreateFragment()
	for _, c := range nodes {
		if n := d.convert(c); n != nil {
			frag.appendRaw(n)
		}
	}
	return frag, nil
}

// SetInnerHTML replaces n's children with the parsed markup.
func (n *Node) SetInnerHTML(markup string) error {
	d := n.doc
	if d == nil {
		d = NewDocument()
	}
	frag, err := d.ParseFragment(markup)
	if err != nil {
		return err
	}
	n.RemoveChildren()
	n.AppendChild(frag)
	return nil
}

// InnerHTML renders n's children.
func (n *Node) InnerHTML() string {
	var b bytes.Buffer
	for c := n.firstChild; c != nil; c = c.nextSibling {
		_ = html.Render(&b, toHTML(c))
	}
	if n.Content != nil {
		for c := n.Content.firstChild; c != nil; c = c.nextSibling {
			_ = html.Render(&b, toHTML(c))
		}
	}
	return b.String()
}

func (d *Document) convert(hn *html.Node) *Node {
	var n *Node
	switch hn.Type {
	case html.ElementNode:
		n = &Node{Type: ElementNode, Tag: hn.Data, doc: d}
		for _, a := range hn.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			n.attrs = append(n.attrs, Attr{Name: name, Value: a.Val})
		}
	case html.TextNode:
		return &Node{Type: TextNode, Data: hn.Data, doc: d}
	case html.CommentNode:
		return &Node{Type: CommentNode, Data: hn.Data, doc: d}
	case html.DoctypeNode:
		return &Node{Type: DoctypeNode, Data: hn.Data, doc: d}
	default:
		return nil
	}

	parent := n
	if n.Tag == "template" {
		n.Content = d.CreateFragment()
		parent = n.Content
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if cn := d.convert(c); cn != nil {
			parent.appendRaw(cn)
		}
	}
	return n
}

// Render writes n as HTML.
func Render(w io.Writer, n *Node) error {
	if n.Type == DocumentNode || n.Type == FragmentNode {
		for c := n.firstChild; c != nil; c = c.nextSibling {
			if err := html.Render(w, toHTML(c)); err != nil {
				return err
			}
		}
		return nil
	}
	return html.Render(w, toHTML(n))
}

// RenderString renders n to a string.
func RenderString(n *Node) (string, error) {
	var b bytes.Buffer
	if err := Render(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// OuterHTML renders n, ignoring errors.
func (n *Node) OuterHTML() string {
	s, _ := RenderString(n)
	return s
}

func toHTML(n *Node) *html.Node {
	hn := &html.Node{}
	switch n.Type {
	case ElementNode:
		hn.Type = html.ElementNode
		hn.Data = n.Tag
		hn.DataAtom = atom.Lookup([]byte(n.Tag))
		for _, a := range n.attrs {
			hn.Attr = append(hn.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
	case TextNode:
		hn.Type = html.TextNode
		hn.Data = n.Data
	case CommentNode:
		hn.Type = html.CommentNode
		hn.Data = n.Data
	case DoctypeNode:
		hn.Type = html.DoctypeNode
		hn.Data = n.Data
	case DocumentNode:
		hn.Type = html.DocumentNode
	}
	children := n
	if n.Content != nil {
		children = n.Content
	}
	for c := children.firstChild; c != nil; c = c.nextSibling {
		hn.AppendChild(toHTML(c))
	}
	if n.Content != nil {
		for c := n.firstChild; c != nil; c = c.nextSibling {
			hn.AppendChild(toHTML(c))
		}
	}
	return hn
}
