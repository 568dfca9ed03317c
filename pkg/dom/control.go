package dom

import (
	"strings"
)

// Form control state lives in attributes so that rendering reflects it.

// Value returns the current value of an input, textarea or select.
func (n *Node) Value() string {
	switch n.Tag {
	case "textarea":
		return n.TextContent()
	case "select":
		var first, sel *Node
		n.Walk(func(c *Node) bool {
			if c.Tag != "option" {
				return true
			}
			if first == nil {
				first = c
			}
			if sel == nil && c.HasAttribute("selected") {
				sel = c
			}
			return false
		})
		if sel == nil {
			sel = first
		}
		if sel == nil {
			return ""
		}
		return optionValue(sel)
	case "input":
		if v, ok := n.GetAttribute("value"); ok {
			return v
		}
		if t := n.Attr("type"); t == "checkbox" || t == "radio" {
			return "on"
		}
		return ""
	}
	return n.Attr("value")
}

// SetValue sets the current value.
func (n *Node) SetValue(v string) {
	switch n.Tag {
	case "textarea":
		n.SetTextContent(v)
	case "select":
		n.Walk(func(c *Node) bool {
			if c.Tag != "option" {
				return true
			}
			if optionValue(c) == v {
				c.SetAttribute("selected", "")
			} else {
				c.RemoveAttribute("selected")
			}
			return false
		})
	default:
		n.SetAttribute("value", v)
	}
}

func optionValue(o *Node) string {
	if v, ok := o.GetAttribute("value"); ok {
		return v
	}
	return strings.TrimSpace(o.TextContent())
}

// Checked reports the checked state of a checkbox or radio.
func (n *Node) Checked() bool {
	return n.HasAttribute("checked")
}

// SetChecked sets the checked state.
func (n *Node) SetChecked(b bool) {
	if b {
		n.SetAttribute("checked", "")
	} else {
		n.RemoveAttribute("checked")
	}
}

// SetCustomValidity marks the control invalid with msg, or valid when msg
// is empty.
func (n *Node) SetCustomValidity(msg string) {
	n.validity = msg
}

// ValidationMessage returns the message CheckValidity would report.
func (n *Node) ValidationMessage() string {
	if n.validity != "" {
		return n.validity
	}
	if n.HasAttribute("required") {
		switch t := n.Attr("type"); {
		case t == "checkbox":
			if !n.Checked() {
				return "Please check this box if you want to proceed."
			}
		case n.Value() == "":
			return "Please fill out this field."
		}
	}
	return ""
}

// CheckValidity reports whether the control satisfies its constraints.
func (n *Node) CheckValidity() bool {
	return n.ValidationMessage() == ""
}

// ───────────────────────── style ─────────────────────────

// StyleProperty returns an inline style declaration.
func (n *Node) StyleProperty(name string) string {
	for _, d := range parseStyle(n.Attr("style")) {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}

// SetStyleProperty sets an inline style declaration.
func (n *Node) SetStyleProperty(name, value string) {
	decls := parseStyle(n.Attr("style"))
	for i := range decls {
		if decls[i].Name == name {
			decls[i].Value = value
			n.SetAttribute("style", formatStyle(decls))
			return
		}
	}
	n.SetAttribute("style", formatStyle(append(decls, Attr{Name: name, Value: value})))
}

// RemoveStyleProperty removes an inline style declaration. The style
// attribute is dropped when it becomes empty.
func (n *Node) RemoveStyleProperty(name string) {
	decls := parseStyle(n.Attr("style"))
	out := decls[:0]
	for _, d := range decls {
		if d.Name != name {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		n.RemoveAttribute("style")
		return
	}
	n.SetAttribute("style", formatStyle(out))
}

func parseStyle(s string) []Attr {
	var out []Attr
	for _, part := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, Attr{Name: name, Value: strings.TrimSpace(value)})
	}
	return out
}

func formatStyle(decls []Attr) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.Name + ": " + d.Value
	}
	return strings.Join(parts, "; ")
}
