package document

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/surgify/islandkit/errors"
)

// Document wraps a parsed HTML tree with the mutation operations the
// coordination layer needs: marker discovery, content splicing, and
// fallback injection. Every mutation bumps a revision counter so the
// bridge can detect that markers may have been detached since its last
// sweep.
type Document struct {
	root     *html.Node
	revision uint64
	mu       sync.RWMutex
}

// Parse builds a document from an HTML stream.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Document", "Parse", "html parsing")
	}
	return &Document{root: root}, nil
}

// ParseString builds a document from an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Revision returns the document's mutation counter. It increases on every
// content change; equality between two reads means no mutation happened
// in between.
func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// Render serializes the document to the writer.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := html.Render(w, d.root); err != nil {
		return errors.WrapTransient(err, "Document", "Render", "html serialization")
	}
	return nil
}

// String returns the serialized document. Debugging and tests.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

// Contains reports whether a marker with the given island id is still
// attached to the document.
func (d *Document) Contains(islandID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.findByAttr(AttrID, islandID) != nil
}

// ReplaceContent replaces the children of the element with the given html
// id attribute by the parsed fragment. This is the splice primitive the
// page-update layer uses.
func (d *Document) ReplaceContent(targetID, fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	target := d.findByAttr("id", targetID)
	if target == nil {
		return errors.WrapInvalid(errors.ErrTargetNotFound, "Document", "ReplaceContent", "target lookup")
	}

	nodes, err := parseFragment(fragment)
	if err != nil {
		return errors.Wrap(err, "Document", "ReplaceContent", "fragment parsing")
	}

	replaceChildren(target, nodes)
	d.revision++
	return nil
}

// SetFallback replaces a marker's content with a minimal failure
// placeholder. The rest of the page keeps working; the broken fragment
// shows the message.
func (d *Document) SetFallback(islandID, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	marker := d.findByAttr(AttrID, islandID)
	if marker == nil {
		return errors.WrapInvalid(errors.ErrMarkerNotFound, "Document", "SetFallback", "marker lookup")
	}

	fallback := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: "island-error"}},
	}
	fallback.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: message,
	})

	replaceChildren(marker, []*html.Node{fallback})
	d.revision++
	return nil
}

// RemoveMarker detaches the marker with the given island id from the
// document. Returns whether a marker existed.
func (d *Document) RemoveMarker(islandID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	marker := d.findByAttr(AttrID, islandID)
	if marker == nil {
		return false
	}

	marker.Parent.RemoveChild(marker)
	d.revision++
	return true
}

// ReplaceBody replaces the document body's children with the parsed
// fragment. Used by client-side navigation.
func (d *Document) ReplaceBody(fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	body := d.findElement(atom.Body)
	if body == nil {
		return errors.WrapInvalid(errors.ErrTargetNotFound, "Document", "ReplaceBody", "body lookup")
	}

	nodes, err := parseFragment(fragment)
	if err != nil {
		return errors.Wrap(err, "Document", "ReplaceBody", "fragment parsing")
	}

	replaceChildren(body, nodes)
	d.revision++
	return nil
}

// findByAttr walks the tree for the first element carrying attr=value.
// Callers hold the lock.
func (d *Document) findByAttr(attr, value string) *html.Node {
	var walk func(n *html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode {
			if v, ok := getAttr(n, attr); ok && v == value {
				return n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(d.root)
}

// findElement walks the tree for the first element with the given atom.
func (d *Document) findElement(a atom.Atom) *html.Node {
	var walk func(n *html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(d.root)
}

// getAttr returns an element attribute value.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// parseFragment parses an HTML fragment in a div context.
func parseFragment(fragment string) ([]*html.Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}
	return html.ParseFragment(strings.NewReader(fragment), context)
}

// replaceChildren swaps all children of parent for the given nodes.
func replaceChildren(parent *html.Node, nodes []*html.Node) {
	for parent.FirstChild != nil {
		parent.RemoveChild(parent.FirstChild)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
}
