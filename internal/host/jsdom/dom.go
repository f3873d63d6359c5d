// internal/host/jsdom/dom.go
package jsdom

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// install binds window, document and their aliases into a fresh VM.
func (h *Host) install() {
	vm := h.vm
	h.doc = h.newDocument()

	win := vm.NewObject()
	h.accessor(win, "location", h.location, func(v goja.Value) { h.pending = v.String() })
	win.Set("document", h.doc)

	global := vm.GlobalObject()
	for _, name := range []string{"window", "self", "top", "parent"} {
		win.Set(name, win)
		global.Set(name, win)
	}
	global.Set("document", h.doc)
}

func (h *Host) location() goja.Value {
	vm := h.vm
	loc := vm.NewObject()
	h.accessor(loc, "href", func() goja.Value { return vm.ToValue(h.url.String()) }, func(v goja.Value) { h.pending = v.String() })
	loc.Set("reload", func(goja.FunctionCall) goja.Value {
		h.record("reload", nil)
		h.pending = h.url.String()
		return goja.Undefined()
	})
	loc.Set("toString", func(goja.FunctionCall) goja.Value { return vm.ToValue(h.url.String()) })
	return loc
}

func (h *Host) newDocument() *goja.Object {
	vm := h.vm
	doc := vm.NewObject()
	doc.Set("readyState", "complete")
	doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return h.wrap(find(h.root, attrIs("id", call.Argument(0).String())))
	})
	doc.Set("getElementsByName", func(call goja.FunctionCall) goja.Value {
		return h.list(collect(h.root, attrIs("name", call.Argument(0).String())))
	})
	h.bindQueries(doc, func() *html.Node { return h.root })
	doc.Set("createEvent", func(goja.FunctionCall) goja.Value { return h.newEvent() })

	h.accessor(doc, "links", func() goja.Value { return h.list(collect(h.root, isLink)) }, nil)
	h.accessor(doc, "documentElement", func() goja.Value { return h.wrap(find(h.root, tagIs("html"))) }, nil)
	h.accessor(doc, "body", func() goja.Value { return h.wrap(find(h.root, tagIs("body"))) }, nil)
	h.accessor(doc, "title", func() goja.Value {
		title := find(h.root, tagIs("title"))
		if title == nil {
			return vm.ToValue("")
		}
		return vm.ToValue(collapse(textContent(title)))
	}, nil)
	h.accessor(doc, "URL", func() goja.Value { return vm.ToValue(h.url.String()) }, nil)
	return doc
}

// bindQueries adds the lookups shared by documents and elements. root is
// read at call time.
func (h *Host) bindQueries(obj *goja.Object, root func() *html.Node) {
	obj.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return h.list(collect(root(), tagIs(call.Argument(0).String())))
	})
	obj.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		return h.list(collect(root(), hasClass(call.Argument(0).String())))
	})
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return h.wrap(find(root(), h.selector(call.Argument(0).String())))
	})
	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return h.list(collect(root(), h.selector(call.Argument(0).String())))
	})
}

func (h *Host) newEvent() goja.Value {
	ev := h.vm.NewObject()
	ev.Set("type", "")
	initEvent := func(call goja.FunctionCall) goja.Value {
		ev.Set("type", call.Argument(0).String())
		return goja.Undefined()
	}
	ev.Set("initEvent", initEvent)
	ev.Set("initMouseEvent", initEvent)
	ev.Set("preventDefault", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	return ev
}

// list wraps nodes as an array that also answers item(i).
func (h *Host) list(nodes []*html.Node) goja.Value {
	items := make([]any, len(nodes))
	for i, n := range nodes {
		items[i] = h.wrap(n)
	}
	arr := h.vm.NewArray(items...)
	arr.Set("item", func(call goja.FunctionCall) goja.Value {
		i := call.Argument(0).ToInteger()
		if i < 0 || i >= int64(len(nodes)) {
			return goja.Null()
		}
		return h.wrap(nodes[i])
	})
	return arr
}

// wrap returns the element's JS object. Wrappers are cached per document so
// identity and expando properties survive between lookups.
func (h *Host) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if obj, ok := h.wrappers[n]; ok {
		return obj
	}
	obj := h.vm.NewObject()
	h.wrappers[n] = obj
	h.defineElement(obj, n)
	return obj
}

// reflected maps element properties onto the attributes they mirror.
var reflected = map[string]string{
	"id":        "id",
	"name":      "name",
	"className": "class",
	"title":     "title",
	"alt":       "alt",
	"target":    "target",
	"type":      "type",
	"content":   "content",
	"httpEquiv": "http-equiv",
}

func (h *Host) defineElement(obj *goja.Object, n *html.Node) {
	vm := h.vm
	tag := strings.ToUpper(n.Data)

	obj.Set("tagName", tag)
	obj.Set("nodeName", tag)
	obj.Set("style", vm.NewObject())
	obj.Set("ownerDocument", h.doc)

	for prop, name := range reflected {
		name := name
		h.accessor(obj, prop,
			func() goja.Value { v, _ := attr(n, name); return vm.ToValue(v) },
			func(v goja.Value) { setAttr(n, name, v.String()) })
	}
	for _, name := range []string{"href", "src"} {
		name := name
		h.accessor(obj, name,
			func() goja.Value { return vm.ToValue(h.urlAttr(n, name)) },
			func(v goja.Value) { setAttr(n, name, v.String()) })
	}
	h.accessor(obj, "action", func() goja.Value {
		if _, ok := attr(n, "action"); ok {
			return vm.ToValue(h.urlAttr(n, "action"))
		}
		return vm.ToValue(h.url.String())
	}, nil)
	for _, name := range []string{"checked", "disabled"} {
		name := name
		h.accessor(obj, name,
			func() goja.Value { _, ok := attr(n, name); return vm.ToValue(ok) },
			func(v goja.Value) {
				if v.ToBoolean() {
					setAttr(n, name, "")
				} else {
					removeAttr(n, name)
				}
			})
	}

	h.accessor(obj, "value", func() goja.Value { return vm.ToValue(h.value(n)) }, func(v goja.Value) { h.values[n] = v.String() })
	h.accessor(obj, "textContent", func() goja.Value { return vm.ToValue(textContent(n)) }, nil)
	h.accessor(obj, "innerText", func() goja.Value { return vm.ToValue(collapse(textContent(n))) }, nil)
	h.accessor(obj, "innerHTML", func() goja.Value { return vm.ToValue(renderChildren(n)) }, nil)
	h.accessor(obj, "outerHTML", func() goja.Value { return vm.ToValue(render(n)) }, nil)

	switch tag {
	case "A", "OPTION":
		h.accessor(obj, "text", func() goja.Value { return vm.ToValue(collapse(textContent(n))) }, nil)
	}
	switch tag {
	case "OPTION":
		h.accessor(obj, "selected", func() goja.Value { return vm.ToValue(h.isSelected(n)) }, func(v goja.Value) { h.setSelected(n, v.ToBoolean()) })
	case "SELECT":
		h.accessor(obj, "options", func() goja.Value { return h.list(collect(n, tagIs("option"))) }, nil)
		h.accessor(obj, "selectedIndex", func() goja.Value { return vm.ToValue(h.selectedIndex(n)) }, func(v goja.Value) {
			options := collect(n, tagIs("option"))
			if i := v.ToInteger(); i >= 0 && i < int64(len(options)) {
				h.setSelected(options[i], true)
			}
		})
	case "TABLE":
		h.accessor(obj, "rows", func() goja.Value { return h.list(rows(n)) }, nil)
	case "TR":
		h.accessor(obj, "cells", func() goja.Value { return h.list(cells(n)) }, nil)
	}

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := attr(n, call.Argument(0).String()); ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	h.bindQueries(obj, func() *html.Node { return n })

	obj.Set("click", func(goja.FunctionCall) goja.Value {
		h.click(n)
		return goja.Undefined()
	})
	obj.Set("submit", func(goja.FunctionCall) goja.Value {
		h.submit(n)
		return goja.Undefined()
	})
	obj.Set("focus", func(goja.FunctionCall) goja.Value {
		h.record("focus", n)
		return goja.Undefined()
	})
	obj.Set("blur", func(goja.FunctionCall) goja.Value {
		h.record("blur", n)
		return goja.Undefined()
	})
	obj.Set("setSelectionRange", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	obj.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		kind := ""
		if t := call.Argument(0).ToObject(vm).Get("type"); t != nil {
			kind = t.String()
		}
		h.record(kind, n)
		return vm.ToValue(true)
	})
}

// click follows links and submits the owning form of submit buttons.
func (h *Host) click(n *html.Node) {
	h.record("click", n)
	switch strings.ToLower(n.Data) {
	case "a", "area":
		if _, ok := attr(n, "href"); ok {
			h.pending = h.urlAttr(n, "href")
		}
	case "input", "button":
		kind, _ := attr(n, "type")
		if strings.EqualFold(kind, "submit") || (kind == "" && strings.EqualFold(n.Data, "button")) {
			if form := nearest(n, "form"); form != nil {
				h.submit(form)
			}
		}
	}
}

func (h *Host) submit(form *html.Node) {
	h.record("submit", form)
	if _, ok := attr(form, "action"); ok {
		h.pending = h.urlAttr(form, "action")
		return
	}
	h.pending = h.url.String()
}

func (h *Host) value(n *html.Node) string {
	if v, ok := h.values[n]; ok {
		return v
	}
	switch strings.ToLower(n.Data) {
	case "textarea":
		return textContent(n)
	case "select":
		for _, opt := range collect(n, tagIs("option")) {
			if h.isSelected(opt) {
				return h.value(opt)
			}
		}
		return ""
	case "option":
		if v, ok := attr(n, "value"); ok {
			return v
		}
		return collapse(textContent(n))
	}
	v, _ := attr(n, "value")
	return v
}

func (h *Host) isSelected(opt *html.Node) bool {
	if s, ok := h.selected[opt]; ok {
		return s
	}
	_, ok := attr(opt, "selected")
	return ok
}

// setSelected selects opt. Outside a multiple select, every other option is
// deselected.
func (h *Host) setSelected(opt *html.Node, on bool) {
	h.selected[opt] = on
	list := nearest(opt, "select")
	if !on || list == nil {
		return
	}
	if _, multiple := attr(list, "multiple"); multiple {
		return
	}
	for _, other := range collect(list, tagIs("option")) {
		if other != opt {
			h.selected[other] = false
		}
	}
}

func (h *Host) selectedIndex(list *html.Node) int {
	for i, opt := range collect(list, tagIs("option")) {
		if h.isSelected(opt) {
			return i
		}
	}
	return -1
}

// urlAttr resolves a URL-valued attribute against the document's base URL.
// An absent attribute is "".
func (h *Host) urlAttr(n *html.Node, key string) string {
	ref, ok := attr(n, key)
	if !ok {
		return ""
	}
	base := h.baseURL()
	if base == nil {
		return ref
	}
	u, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return u.String()
}

func (h *Host) baseURL() *url.URL {
	b := find(h.root, func(n *html.Node) bool {
		_, ok := attr(n, "href")
		return ok && strings.EqualFold(n.Data, "base")
	})
	if b == nil {
		return h.url
	}
	ref, _ := attr(b, "href")
	if h.url == nil {
		u, err := url.Parse(ref)
		if err != nil {
			return nil
		}
		return u
	}
	u, err := h.url.Parse(ref)
	if err != nil {
		return h.url
	}
	return u
}

var attrSelector = regexp.MustCompile(`^\[\s*([\w-]+)\s*=\s*"((?:[^"\\]|\\.)*)"\s*\]$`)

var tagSelector = regexp.MustCompile(`^[A-Za-z][\w-]*$`)

// selector compiles the selectors generated scripts use: a tag name or a
// single quoted attribute equality. Anything else throws in the script.
func (h *Host) selector(sel string) func(*html.Node) bool {
	sel = strings.TrimSpace(sel)
	if m := attrSelector.FindStringSubmatch(sel); m != nil {
		want, err := strconv.Unquote(`"` + m[2] + `"`)
		if err != nil {
			panic(h.vm.NewGoError(fmt.Errorf("invalid selector %q: %w", sel, err)))
		}
		return attrIs(m[1], want)
	}
	if tagSelector.MatchString(sel) {
		return tagIs(sel)
	}
	panic(h.vm.NewGoError(fmt.Errorf("unsupported selector %q", sel)))
}

func (h *Host) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := h.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	var setter goja.Value = goja.Undefined()
	if set != nil {
		setter = h.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	if err := obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
		h.logger.Error("Failed to define property.", zap.String("property", name), zap.Error(err))
	}
}

// --- Tree helpers ---

// collect returns the element descendants of root matching match, in
// document order. root itself is not included.
func collect(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && match(c) {
				out = append(out, c)
			}
			visit(c)
		}
	}
	if root != nil {
		visit(root)
	}
	return out
}

func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	if found := collect(root, match); len(found) > 0 {
		return found[0]
	}
	return nil
}

func nearest(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(p.Data, tag) {
			return p
		}
	}
	return nil
}

// rows lists a table's rows, skipping those of nested tables.
func rows(table *html.Node) []*html.Node {
	return collect(table, func(n *html.Node) bool {
		return strings.EqualFold(n.Data, "tr") && nearest(n, "table") == table
	})
}

func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (strings.EqualFold(c.Data, "td") || strings.EqualFold(c.Data, "th")) {
			out = append(out, c)
		}
	}
	return out
}

func tagIs(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return tag == "*" || strings.EqualFold(n.Data, tag) }
}

func attrIs(key, want string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := attr(n, key)
		return ok && v == want
	}
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, _ := attr(n, "class")
		for _, c := range strings.Fields(v) {
			if c == class {
				return true
			}
		}
		return false
	}
}

// isLink matches the members of document.links.
func isLink(n *html.Node) bool {
	_, ok := attr(n, "href")
	return ok && (strings.EqualFold(n.Data, "a") || strings.EqualFold(n.Data, "area"))
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: strings.ToLower(key), Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || !strings.EqualFold(a.Key, key) {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func renderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}
