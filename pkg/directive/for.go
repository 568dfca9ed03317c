package directive

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/way/internal/errors"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/scope"
)

// ForHeader is a parsed x-for header.
type ForHeader struct {
	Item  string
	Index string
	List  string
}

const ident = `([A-Za-z_$][\w$]*)`

var (
	forParen  = regexp.MustCompile(`^\(\s*` + ident + `\s*(?:,\s*` + ident + `\s*)?\)\s+in\s+(.+)$`)
	forPair   = regexp.MustCompile(`^` + ident + `\s*,\s*` + ident + `\s+in\s+(.+)$`)
	forSingle = regexp.MustCompile(`^` + ident + `\s+in\s+(.+)$`)
)

// ParseForHeader parses "item in list", "(item, index) in list" or
// "item, index in list".
func ParseForHeader(src string) (ForHeader, error) {
	src = strings.TrimSpace(src)
	if m := forParen.FindStringSubmatch(src); m != nil {
		return ForHeader{Item: m[1], Index: m[2], List: strings.TrimSpace(m[3])}, nil
	}
	if m := forPair.FindStringSubmatch(src); m != nil {
		return ForHeader{Item: m[1], Index: m[2], List: strings.TrimSpace(m[3])}, nil
	}
	if m := forSingle.FindStringSubmatch(src); m != nil {
		return ForHeader{Item: m[1], List: strings.TrimSpace(m[2])}, nil
	}
	return ForHeader{}, errors.New("E211").WithDetail(src)
}

func (h ForHeader) values(item any, i int) map[string]any {
	vals := map[string]any{h.Item: item, "$index": i}
	if h.Index != "" {
		vals[h.Index] = i
		vals["index"] = i
	}
	return vals
}

// forEntry is one rendered item. Its nodes are everything between the
// start and end markers, including nodes that nested directives add later.
type forEntry struct {
	key   string
	start *dom.Node
	end   *dom.Node
	scope *scope.Scope
	owner *reactive.Owner
}

type forLoop struct {
	d      *Dispatcher
	tpl    *dom.Node
	anchor *dom.Node
	header ForHeader
	keyExp string
	base   *scope.Scope
	owner  *reactive.Owner

	entries map[string]*forEntry
	order   []*forEntry
}

// bindFor renders one copy of the template content per list item between
// an anchor comment and the template, reusing the nodes of items whose
// key survives a change.
func bindFor(d *Dispatcher, tpl *dom.Node, value string, s *scope.Scope) error {
	if tpl.Tag != "template" || tpl.Content == nil {
		return errors.New("E210").WithDetail("x-for on <" + tpl.Tag + ">")
	}
	parent := tpl.Parent()
	if parent == nil {
		return errors.New("E210").WithDetail("x-for template has no parent")
	}
	h, err := ParseForHeader(value)
	if err != nil {
		return err
	}
	keyExp, ok := tpl.GetAttribute(":key")
	if !ok {
		keyExp = tpl.Attr("x-key")
	}

	l := &forLoop{
		d:       d,
		tpl:     tpl,
		anchor:  tpl.OwnerDocument().CreateComment("x-for"),
		header:  h,
		keyExp:  keyExp,
		base:    s,
		owner:   reactive.CurrentOwner(),
		entries: make(map[string]*forEntry),
	}
	parent.InsertBefore(l.anchor, tpl)
	watch(l.update)
	return nil
}

func (l *forLoop) update() {
	_, span := l.d.tracer.Start(context.Background(), "way.reconcile",
		trace.WithAttributes(attribute.String("way.list", l.header.List)),
	)
	defer span.End()

	raw := l.d.eval.Evaluate(l.header.List, l.base)
	items, ok := expr.AsList(raw)
	if !ok {
		l.clear()
		err := errors.New("E212").WithDetail(l.header.List + " is " + expr.TypeOf(raw))
		span.RecordError(err)
		l.d.report(l.tpl, "x-for", err)
		return
	}

	keys := make([]string, len(items))
	last := make(map[string]int, len(items))
	for i, item := range items {
		keys[i] = l.key(item, i)
		last[keys[i]] = i
	}

	var stats ReconcileStats
	next := make([]*forEntry, 0, len(items))
	for i, item := range items {
		key := keys[i]
		if last[key] != i {
			continue
		}
		vals := l.header.values(item, i)
		if e, ok := l.entries[key]; ok {
			e.scope.Merge(vals)
			stats.Reused++
			next = append(next, e)
			continue
		}
		next = append(next, l.create(key, vals))
		stats.Created++
	}

	live := make(map[string]bool, len(next))
	for _, e := range next {
		live[e.key] = true
	}
	for _, e := range l.order {
		if !live[e.key] {
			l.remove(e)
			stats.Removed++
		}
	}

	stats.Moved = l.place(next)
	l.order = next
	l.entries = make(map[string]*forEntry, len(next))
	for _, e := range next {
		l.entries[e.key] = e
	}

	span.SetAttributes(
		attribute.Int("way.created", stats.Created),
		attribute.Int("way.reused", stats.Reused),
		attribute.Int("way.removed", stats.Removed),
		attribute.Int("way.moved", stats.Moved),
	)
	if l.d.observer != nil {
		l.d.observer.Reconciled(stats)
	}
}

func (l *forLoop) key(item any, i int) string {
	if l.keyExp == "" {
		return strconv.Itoa(i)
	}
	plain := l.base.Extend(l.header.values(item, i))
	return expr.ToString(l.d.eval.Evaluate(l.keyExp, plain))
}

// create clones the template between a pair of markers in front of the
// template element and hydrates the clone under a fresh owner.
func (l *forLoop) create(key string, vals map[string]any) *forEntry {
	cells := make(map[string]any, len(vals))
	for k, v := range vals {
		cells[k] = reactive.NewSignal[any](v)
	}
	doc := l.tpl.OwnerDocument()
	e := &forEntry{
		key:   key,
		start: doc.CreateComment("["),
		end:   doc.CreateComment("]"),
		scope: l.base.Extend(cells),
		owner: reactive.NewOwner(l.owner),
	}

	parent := l.tpl.Parent()
	clone := l.tpl.Content.Clone(true)
	top := clone.ChildNodes()
	parent.InsertBefore(e.start, l.tpl)
	parent.InsertBefore(clone, l.tpl)
	parent.InsertBefore(e.end, l.tpl)

	reactive.WithOwner(e.owner, func() {
		reactive.Untracked(func() {
			for _, n := range top {
				l.d.hydrate(n, e.scope)
			}
		})
	})
	return e
}

func (l *forLoop) remove(e *forEntry) {
	e.owner.Dispose()
	for n := e.start; n != nil; {
		next := n.NextSibling()
		n.Remove()
		if n == e.end {
			break
		}
		n = next
	}
}

// place orders the entries after the anchor with one forward scan, moving
// an entry's whole range only when it does not already follow the
// previous entry. It returns the number of entries that moved.
func (l *forLoop) place(entries []*forEntry) int {
	parent := l.tpl.Parent()
	moved := 0
	prev := l.anchor
	for _, e := range entries {
		if prev.NextSibling() != e.start {
			ref := prev.NextSibling()
			for n := e.start; n != nil; {
				next := n.NextSibling()
				parent.InsertBefore(n, ref)
				if n == e.end {
					break
				}
				n = next
			}
			moved++
		}
		prev = e.end
	}
	return moved
}

func (l *forLoop) clear() {
	for _, e := range l.order {
		l.remove(e)
	}
	l.order = nil
	l.entries = make(map[string]*forEntry)
}
