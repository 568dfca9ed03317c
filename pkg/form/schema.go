package form

import (
	"maps"
	"slices"

	"github.com/vango-dev/way/pkg/dom"
)

// Fields maps a control name to its validator.
type Fields map[string]Validator

// Context is handed to a schema's setup function.
type Context struct {
	// El is the <form> element.
	El *dom.Node

	// Emit dispatches a bubbling custom event from El.
	Emit func(name string, detail any)
}

// Schema is a named set of field validators plus optional submit and
// setup hooks.
type Schema struct {
	Name   string
	Fields Fields

	onSubmit func(values map[string]string)
	setup    func(Context) map[string]any
}

// Option configures a Schema.
type Option func(*Schema)

// OnSubmit sets the callback run with the form values after a valid
// submit. The submit event's default is prevented when it is set.
func OnSubmit(fn func(values map[string]string)) Option {
	return func(s *Schema) { s.onSubmit = fn }
}

// Setup sets a function whose result is merged into the form element's
// data scope.
func Setup(fn func(Context) map[string]any) Option {
	return func(s *Schema) { s.setup = fn }
}

// NewSchema creates a schema.
func NewSchema(name string, fields Fields, opts ...Option) *Schema {
	s := &Schema{Name: name, Fields: maps.Clone(fields)}
	if s.Fields == nil {
		s.Fields = Fields{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasSetup reports whether a setup function is configured.
func (s *Schema) HasSetup() bool { return s.setup != nil }

// RunSetup runs the setup function. It returns nil when none is set.
func (s *Schema) RunSetup(ctx Context) map[string]any {
	if s.setup == nil {
		return nil
	}
	return s.setup(ctx)
}

// FieldNames returns the validated field names in sorted order.
func (s *Schema) FieldNames() []string {
	return slices.Sorted(maps.Keys(s.Fields))
}

// Validate checks a single value against the named field.
func (s *Schema) Validate(field string, value any) Result {
	return Check(s.Fields[field], value)
}

// ValidateField checks a control and publishes the outcome: the
// control's custom validity is set, and the element its
// aria-describedby attribute names receives the validation message.
// Controls without a name are ignored; controls without a validator
// are cleared.
func (s *Schema) ValidateField(el *dom.Node) {
	name := el.Attr("name")
	if name == "" {
		return
	}
	if v, ok := s.Fields[name]; ok {
		el.SetCustomValidity(Check(v, el.Value()).Message)
	} else {
		el.SetCustomValidity("")
	}
	if id := el.Attr("aria-describedby"); id != "" {
		if msg := el.Root().GetElementByID(id); msg != nil {
			msg.SetTextContent(el.ValidationMessage())
		}
	}
}

// ValidateForm validates every control in the form and reports whether
// all of them are valid.
func (s *Schema) ValidateForm(formEl *dom.Node) bool {
	valid := true
	for _, c := range Controls(formEl) {
		s.ValidateField(c)
		if !c.CheckValidity() {
			valid = false
		}
	}
	return valid
}

// Attach wires input-time and submit-time validation onto a <form>
// element. The returned function removes the listeners.
func (s *Schema) Attach(formEl *dom.Node) (detach func()) {
	offInput := formEl.AddEventListener("input", func(e *dom.Event) {
		if e.Target != nil && isControl(e.Target) {
			s.ValidateField(e.Target)
		}
	})
	offSubmit := formEl.AddEventListener("submit", func(e *dom.Event) {
		if !s.ValidateForm(formEl) {
			e.PreventDefault()
			return
		}
		custom := formEl.HasAttribute("@onsubmit")
		if s.onSubmit == nil && !custom {
			return
		}
		e.PreventDefault()
		values := Values(formEl)
		if s.onSubmit != nil {
			s.onSubmit(values)
		}
		if custom {
			formEl.Dispatch(dom.NewCustomEvent("onsubmit", values))
		}
	})
	return func() {
		offInput()
		offSubmit()
	}
}

// Controls returns the form's input, textarea and select elements in
// document order.
func Controls(formEl *dom.Node) []*dom.Node {
	var out []*dom.Node
	formEl.Walk(func(n *dom.Node) bool {
		if isControl(n) {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// Values collects the submittable name/value pairs of a form. Disabled
// controls and unchecked checkboxes and radios are skipped.
func Values(formEl *dom.Node) map[string]string {
	values := make(map[string]string)
	for _, c := range Controls(formEl) {
		name := c.Attr("name")
		if name == "" || c.HasAttribute("disabled") {
			continue
		}
		if t := c.Attr("type"); (t == "checkbox" || t == "radio") && !c.Checked() {
			continue
		}
		values[name] = c.Value()
	}
	return values
}

func isControl(n *dom.Node) bool {
	if n.Type != dom.ElementNode {
		return false
	}
	switch n.Tag {
	case "input", "textarea", "select":
		return true
	}
	return false
}
