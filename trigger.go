package way

import (
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/reactive"
)

// TriggerOption sets control state before a simulated event is dispatched.
type TriggerOption func(el *dom.Node)

// WithValue sets the control's value.
func WithValue(v string) TriggerOption {
	return func(el *dom.Node) { el.SetValue(v) }
}

// WithChecked sets the control's checked state.
func WithChecked(b bool) TriggerOption {
	return func(el *dom.Node) { el.SetChecked(b) }
}

// Trigger simulates a user event of type typ on el, then flushes the
// reactive runtime. It reports whether the event's default action was
// left alone.
func (e *Engine) Trigger(el *dom.Node, typ string, opts ...TriggerOption) bool {
	for _, opt := range opts {
		opt(el)
	}
	ok := el.Dispatch(dom.NewEvent(typ))
	reactive.Flush()
	return ok
}
