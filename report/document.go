package report

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a node of a [Document] under construction.
// Methods return the receiver so calls can be chained.
type Element interface {
	// SetAttr sets an attribute, replacing any previous value.
	SetAttr(key, val string) Element
	// SetText replaces all children with a single text node.
	SetText(text string) Element
	// AppendText adds a text node after the existing children.
	AppendText(text string) Element
	// Append adds children created by the same Document.
	Append(children ...Element) Element
}

// Document builds an HTML page element by element.
type Document interface {
	// Element creates a detached element with the given tag name.
	Element(tag string) Element
	Head() Element
	Body() Element
	// Render writes the whole document, doctype included.
	Render(w io.Writer) error
}

type htmlDocument struct {
	root *html.Node
	head *htmlElement
	body *htmlElement
}

type htmlElement struct {
	n *html.Node
}

// NewDocument returns an empty HTML5 document with the given language
// attribute on its root element.
func NewDocument(lang string) Document {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	d := &htmlDocument{root: root}
	page := d.element("html")
	if lang != "" {
		page.SetAttr("lang", lang)
	}
	d.head = d.element("head")
	d.body = d.element("body")
	page.Append(d.head, d.body)
	root.AppendChild(page.n)
	return d
}

func (d *htmlDocument) element(tag string) *htmlElement {
	return &htmlElement{n: &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}}
}

func (d *htmlDocument) Element(tag string) Element { return d.element(tag) }
func (d *htmlDocument) Head() Element              { return d.head }
func (d *htmlDocument) Body() Element              { return d.body }

func (d *htmlDocument) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (e *htmlElement) SetAttr(key, val string) Element {
	for i := range e.n.Attr {
		if e.n.Attr[i].Key == key {
			e.n.Attr[i].Val = val
			return e
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: val})
	return e
}

func (e *htmlElement) SetText(text string) Element {
	for c := e.n.FirstChild; c != nil; c = e.n.FirstChild {
		e.n.RemoveChild(c)
	}
	return e.AppendText(text)
}

func (e *htmlElement) AppendText(text string) Element {
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return e
}

func (e *htmlElement) Append(children ...Element) Element {
	for _, child := range children {
		c, ok := child.(*htmlElement)
		if !ok {
			panic(fmt.Sprintf("report: cannot append %T to an HTML document", child))
		}
		e.n.AppendChild(c.n)
	}
	return e
}
