package page

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	gosync "sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page that can be queried and mutated in place.
// All methods are safe for concurrent use.
type Document struct {
	mu   gosync.RWMutex
	root *html.Node
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML page held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// HasElement reports whether an element with the given id exists.
func (d *Document) HasElement(id string) bool {
	if id == "" {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return findByID(d.root, id) != nil
}

// FormValue returns the value attribute of the first input whose name
// attribute equals name, or "" if there is none.
func (d *Document) FormValue(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode &&
			n.DataAtom == atom.Input &&
			attr(n, "name") == name
	})
	if n == nil {
		return ""
	}
	return attr(n, "value")
}

// Text returns the concatenated text content of the element with the
// given id.
func (d *Document) Text(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := findByID(d.root, id)
	if n == nil {
		return ""
	}
	var b strings.Builder
	collectText(n, &b)
	return b.String()
}

// Style returns one inline style property of the element with the given id.
func (d *Document) Style(id, prop string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := findByID(d.root, id)
	if n == nil {
		return ""
	}
	return styleProp(n, prop)
}

// Query returns a snapshot of every element under the element with the
// given id (or the whole page when id is "") that carries class.
func (d *Document) Query(id, class string) []Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	scope := d.root
	if id != "" {
		scope = findByID(d.root, id)
		if scope == nil {
			return nil
		}
	}

	var out []Element
	walk(scope, func(n *html.Node) bool {
		if n != scope && n.Type == html.ElementNode && hasClass(n, class) {
			out = append(out, snapshot(n))
		}
		return true
	})
	return out
}

// Render writes the page as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// String returns the page as HTML.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Mutate runs fn with exclusive access to the node tree.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Element is a read-only snapshot of an element.
type Element struct {
	Tag     string
	Attrs   map[string]string
	Classes []string
	Text    string
}

// HasClass reports whether the snapshot carries class.
func (e Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

func snapshot(n *html.Node) Element {
	e := Element{Tag: n.Data, Attrs: make(map[string]string, len(n.Attr))}
	for _, a := range n.Attr {
		e.Attrs[a.Key] = a.Val
	}
	e.Classes = strings.Fields(attr(n, "class"))
	var b strings.Builder
	collectText(n, &b)
	e.Text = strings.TrimSpace(b.String())
	return e
}

// walk visits n and its descendants depth first; fn returns false to stop.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

func findByID(root *html.Node, id string) *html.Node {
	return findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	})
}

func findByClass(root *html.Node, class string) *html.Node {
	return findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, class)
	})
}

func findTag(root *html.Node, a atom.Atom) *html.Node {
	return findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// setText replaces the children of n with a single text node.
func setText(n *html.Node, text string) {
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// el builds an element node with the given attributes (key, value pairs)
// and children.
func el(tag string, attrs []string, children ...*html.Node) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// style helpers operate on the inline style attribute as an ordered list
// of "prop: value" declarations.

func styleProp(n *html.Node, prop string) string {
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == prop {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func setStyleProp(n *html.Node, prop, val string) {
	var decls []string
	replaced := false
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		k, _, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) == prop {
			replaced = true
			if val != "" {
				decls = append(decls, prop+": "+val)
			}
			continue
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	if !replaced && val != "" {
		decls = append(decls, prop+": "+val)
	}
	setAttr(n, "style", strings.Join(decls, "; "))
}
