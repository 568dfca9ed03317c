// Package dom is the mutable host tree the engine hydrates.
//
// It models the subset of a browser document that directives need:
// elements, text, comments and fragments linked as siblings under a
// parent; ordered attributes; template content fragments; form control
// state; bubbling events; and a custom element registry with
// connected/disconnected callbacks.
//
// Trees are read from and written to HTML with golang.org/x/net/html:
//
//	doc, err := dom.Parse(strings.NewReader(page))
//	...
//	html, err := dom.RenderString(doc.Root())
//
// A Document is not safe for concurrent use.
package dom
