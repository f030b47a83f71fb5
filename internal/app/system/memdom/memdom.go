// Package memdom is an in-memory implementation of the dom capability.
//
// Elements are backed by golang.org/x/net/html nodes and selectors are
// compiled with cascadia, so a rendered fragment can be queried, clicked and
// serialized again. Events bubble from the target to the document root.
// Nothing here is safe for concurrent use; a Document belongs to one request
// or one test.
package memdom

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/bloomcycle/bloom/internal/app/system/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is an in-memory page with an <html><body> skeleton.
type Document struct {
	root  *html.Node
	body  *html.Node
	elems map[*html.Node]*Element
}

// New returns an empty document.
func New() *Document {
	d := &Document{
		root:  elementNode("html"),
		body:  elementNode("body"),
		elems: make(map[*html.Node]*Element),
	}
	d.root.AppendChild(d.body)
	return d
}

// Parse returns a document whose body holds the given markup.
func Parse(markup string) *Document {
	d := New()
	d.wrap(d.body).SetInnerHTML(markup)
	return d
}

func elementNode(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// wrap returns the one Element for n, so listeners stay attached to a node
// however it is reached.
func (d *Document) wrap(n *html.Node) *Element {
	if el, ok := d.elems[n]; ok {
		return el
	}
	el := &Element{doc: d, n: n}
	d.elems[n] = el
	return el
}

// wrapAll converts matched nodes to the dom form.
func (d *Document) wrapAll(nodes []*html.Node) []dom.Element {
	var out []dom.Element
	for _, n := range nodes {
		out = append(out, d.wrap(n))
	}
	return out
}

// Body returns the <body> element.
func (d *Document) Body() dom.Element { return d.wrap(d.body) }

// GetElementByID returns the first element with the id, or nil.
func (d *Document) GetElementByID(id string) dom.Element {
	if n := findNode(d.root, func(n *html.Node) bool { return attrOf(n, "id") == id }); n != nil {
		return d.wrap(n)
	}
	return nil
}

// QuerySelector returns the first element matching selector, or nil. An
// invalid selector matches nothing.
func (d *Document) QuerySelector(selector string) dom.Element {
	sel, ok := compile(selector)
	if !ok {
		return nil
	}
	if n := cascadia.Query(d.root, sel); n != nil {
		return d.wrap(n)
	}
	return nil
}

// QuerySelectorAll returns every element matching selector in document order.
func (d *Document) QuerySelectorAll(selector string) []dom.Element {
	return d.wrap(d.root).QuerySelectorAll(selector)
}

// CreateElement returns a detached element owned by d.
func (d *Document) CreateElement(tag string) dom.Element {
	return d.wrap(elementNode(tag))
}

// HTML serializes the body contents.
func (d *Document) HTML() string { return d.wrap(d.body).InnerHTML() }

func compile(selector string) (cascadia.Selector, bool) {
	sel, err := cascadia.Compile(selector)
	return sel, err == nil
}

// Element is an element node of a Document. Text nodes are never returned
// by queries.
type Element struct {
	doc       *Document
	n         *html.Node
	listeners map[string][]dom.Listener
}

func (e *Element) TagName() string { return e.n.Data }

func (e *Element) ID() string { return attrOf(e.n, "id") }

func attrOf(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func (e *Element) GetAttribute(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range e.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	for i, a := range e.n.Attr {
		if a.Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	for i, a := range e.n.Attr {
		if a.Key == name {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			return
		}
	}
}

func (e *Element) Dataset(key string) string {
	v, _ := e.GetAttribute(dataAttr(key))
	return v
}

func (e *Element) SetDataset(key, value string) {
	e.SetAttribute(dataAttr(key), value)
}

// dataAttr maps a camelCase dataset key to its data-* attribute name.
func dataAttr(key string) string {
	var b strings.Builder
	b.WriteString("data-")
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (e *Element) classes() []string {
	v, _ := e.GetAttribute("class")
	return strings.Fields(v)
}

func (e *Element) AddClass(names ...string) {
	cur := e.classes()
	for _, n := range names {
		if !contains(cur, n) {
			cur = append(cur, n)
		}
	}
	e.SetAttribute("class", strings.Join(cur, " "))
}

func (e *Element) RemoveClass(names ...string) {
	cur := e.classes()
	kept := cur[:0]
	for _, c := range cur {
		if !contains(names, c) {
			kept = append(kept, c)
		}
	}
	e.SetAttribute("class", strings.Join(kept, " "))
}

func (e *Element) HasClass(name string) bool {
	return contains(e.classes(), name)
}

func (e *Element) Type() string {
	v, ok := e.GetAttribute("type")
	if !ok && e.n.Data == "input" {
		return "text"
	}
	return strings.ToLower(v)
}

func (e *Element) Name() string {
	v, _ := e.GetAttribute("name")
	return v
}

// Value reads a textarea's text or any other element's value attribute.
func (e *Element) Value() string {
	if e.n.Data == "textarea" {
		return e.TextContent()
	}
	v, _ := e.GetAttribute("value")
	return v
}

func (e *Element) SetValue(v string) {
	if e.n.Data == "textarea" {
		e.SetTextContent(v)
		return
	}
	e.SetAttribute("value", v)
}

func (e *Element) TextContent() string {
	var b strings.Builder
	writeText(&b, e.n)
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

func (e *Element) SetTextContent(s string) {
	e.clearChildren()
	if s != "" {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

func (e *Element) InnerHTML() string {
	var b strings.Builder
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		write(&b, c)
	}
	return b.String()
}

// SetInnerHTML replaces the children with the parsed markup. Listeners on e
// are kept.
func (e *Element) SetInnerHTML(s string) {
	e.clearChildren()
	nodes, err := html.ParseFragment(strings.NewReader(s), elementNode("div"))
	if err != nil {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
		return
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		e.n.AppendChild(n)
	}
}

// styleDecl is one "prop: value" pair of a style attribute.
type styleDecl struct {
	key, val string
}

func (e *Element) Style(prop string) string {
	for _, kv := range e.styles() {
		if kv.key == prop {
			return kv.val
		}
	}
	return ""
}

func (e *Element) SetStyle(prop, value string) {
	styles := e.styles()
	found := false
	for i := range styles {
		if styles[i].key == prop {
			styles[i].val = value
			found = true
		}
	}
	if !found {
		styles = append(styles, styleDecl{key: prop, val: value})
	}
	parts := make([]string, 0, len(styles))
	for _, kv := range styles {
		parts = append(parts, kv.key+": "+kv.val)
	}
	e.SetAttribute("style", strings.Join(parts, "; "))
}

func (e *Element) styles() []styleDecl {
	raw, _ := e.GetAttribute("style")
	var out []styleDecl
	for _, part := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		out = append(out, styleDecl{key: strings.TrimSpace(k), val: strings.TrimSpace(v)})
	}
	return out
}

func (e *Element) Disabled() bool {
	_, ok := e.GetAttribute("disabled")
	return ok
}

func (e *Element) SetDisabled(disabled bool) {
	if disabled {
		e.SetAttribute("disabled", "")
		return
	}
	e.RemoveAttribute("disabled")
}

func (e *Element) Parent() dom.Element {
	if e.n.Parent == nil {
		return nil
	}
	return e.doc.wrap(e.n.Parent)
}

func (e *Element) Children() []dom.Element {
	var out []dom.Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// AppendChild moves child under e. Elements from another dom implementation
// are rejected with a panic.
func (e *Element) AppendChild(child dom.Element) {
	c, ok := child.(*Element)
	if !ok {
		panic("memdom: AppendChild with a foreign element")
	}
	c.Remove()
	e.n.AppendChild(c.n)
}

func (e *Element) clearChildren() {
	for c := e.n.FirstChild; c != nil; c = e.n.FirstChild {
		e.n.RemoveChild(c)
	}
}

// Remove detaches e from its parent.
func (e *Element) Remove() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

// QuerySelectorAll returns matching descendants of e in document order.
func (e *Element) QuerySelectorAll(selector string) []dom.Element {
	sel, ok := compile(selector)
	if !ok {
		return nil
	}
	return e.doc.wrapAll(cascadia.QueryAll(e.n, sel))
}

// Closest returns e or its nearest ancestor matching selector, or nil.
func (e *Element) Closest(selector string) dom.Element {
	sel, ok := compile(selector)
	if !ok {
		return nil
	}
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && sel.Match(n) {
			return e.doc.wrap(n)
		}
	}
	return nil
}

func (e *Element) AddEventListener(eventType string, fn dom.Listener) {
	if e.listeners == nil {
		e.listeners = make(map[string][]dom.Listener)
	}
	e.listeners[eventType] = append(e.listeners[eventType], fn)
}

// Dispatch fires an event at e and bubbles it to the root.
func (e *Element) Dispatch(eventType string) *dom.Event {
	ev := &dom.Event{Type: eventType, Target: e}
	for n := e.n; n != nil; n = n.Parent {
		if el, ok := e.doc.elems[n]; ok {
			for _, fn := range el.listeners[eventType] {
				fn(ev)
			}
		}
	}
	return ev
}

// Click dispatches a click event at e.
func (e *Element) Click() *dom.Event { return e.Dispatch("click") }

// Attached reports whether e is reachable from its document's root.
func (e *Element) Attached() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

func findNode(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hit := findNode(c, pred); hit != nil {
			return hit
		}
	}
	return nil
}

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// write serializes n. Comments and doctypes are dropped.
func write(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if voidTags[n.Data] {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		write(b, c)
	}
	b.WriteString("</")
	b.WriteString(n.Data)
	b.WriteByte('>')
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
