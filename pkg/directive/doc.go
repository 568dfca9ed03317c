// Package directive binds x-* attributes, @event and :prop attributes and
// {expr} text interpolation on host nodes to reactive effects.
//
// A Dispatcher holds the fixed binder table. Bind runs every binder whose
// attribute is present on a node, in table order, followed by the node's
// @ and : attributes in source order. Binders that fail are logged and
// abort for that node only.
//
// Structural directives (x-for, x-if, x-temp) clone template content and
// hand it back to the Hydrator the dispatcher was built with, so nested
// components and directives in the clone are bound by the same
// traversal that bound the page.
package directive
