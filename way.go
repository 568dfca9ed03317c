// Package way is an attribute-driven reactivity engine. It walks a host
// tree, composes a scope for every element from its x-data, component and
// x-props attributes, and binds the directives it finds (x-text, x-show,
// x-if, x-for, x-model, x-form, @event, :prop and {interpolation}) to
// signals from pkg/reactive.
//
// A typical program parses a page, registers its components and renders:
//
//	doc, _ := dom.ParseString(page)
//	eng := way.New(doc)
//	eng.RegisterComponent("counter", func(ctx way.SetupContext) map[string]any {
//	    count := reactive.NewSignal[any](0)
//	    return map[string]any{
//	        "count":     count,
//	        "increment": func() { count.Update(func(v any) any { return v.(int) + 1 }) },
//	    }
//	})
//	if err := eng.Render(ctx, doc.Body(), nil); err != nil {
//	    return err
//	}
//
// Writes to signals are applied to the tree when the reactive runtime is
// flushed (reactive.Flush, or Engine.Trigger which flushes for you).
package way

import (
	"github.com/vango-dev/way/pkg/form"
	"github.com/vango-dev/way/pkg/registry"
)

// Version is the engine version reported by the CLI.
const Version = "0.4.0"

// SetupContext is handed to component setup functions.
type SetupContext = registry.SetupContext

// SetupFunc builds a component's data.
type SetupFunc = registry.SetupFunc

// FormContext is handed to form setup functions.
type FormContext = form.Context
