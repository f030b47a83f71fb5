// Package dom defines the document capability used by page-level components.
//
// The calendar widget and the page behaviors never touch a concrete document;
// they are handed a Document and work through these interfaces. The server
// and the tests supply the in-memory implementation in system/memdom.
package dom

// Document is the subset of a page document the components need.
type Document interface {
	GetElementByID(id string) Element
	QuerySelector(selector string) Element
	QuerySelectorAll(selector string) []Element
	CreateElement(tag string) Element
	Body() Element
}

// Element is a single node in a Document.
//
// Lookups that find nothing return nil (a nil interface, never a typed nil).
type Element interface {
	TagName() string
	ID() string

	GetAttribute(name string) (string, bool)
	SetAttribute(name, value string)
	RemoveAttribute(name string)

	// Dataset reads data-* attributes by their camelCase key ("originalText"
	// reads data-original-text).
	Dataset(key string) string
	SetDataset(key, value string)

	AddClass(names ...string)
	RemoveClass(names ...string)
	HasClass(name string) bool

	// Type and Name mirror the input type and name properties.
	Type() string
	Name() string
	Value() string
	SetValue(v string)

	TextContent() string
	SetTextContent(s string)
	InnerHTML() string
	SetInnerHTML(s string)

	Style(prop string) string
	SetStyle(prop, value string)

	Disabled() bool
	SetDisabled(disabled bool)

	Parent() Element
	Children() []Element
	AppendChild(child Element)
	Remove()

	QuerySelectorAll(selector string) []Element
	Closest(selector string) Element

	AddEventListener(eventType string, fn Listener)
}

// Listener handles a dispatched Event.
type Listener func(e *Event)

// Event is delivered to listeners. Target is the element the event was
// dispatched on; listeners registered on ancestors see the same Target.
type Event struct {
	Type   string
	Target Element

	defaultPrevented bool
}

// PreventDefault marks the event as handled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }
