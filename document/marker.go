package document

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/surgify/islandkit/errors"
	"github.com/surgify/islandkit/island"
)

// Marker attribute contract. A DOM element opts into being an island by
// declaring data-island with the type key; the remaining attributes refine
// identity, routing, and configuration. This contract is the full external
// interface surface of the coordination layer.
const (
	// AttrType declares the element an island marker and names its type
	AttrType = "data-island"
	// AttrID is the island's unique, stable id
	AttrID = "data-island-id"
	// AttrGroups is a space-separated list of group tags
	AttrGroups = "data-island-groups"
	// AttrProps is an inline JSON properties payload
	AttrProps = "data-island-props"
	// AttrPropsRef references a JSON <script> element by id instead
	AttrPropsRef = "data-island-props-ref"
)

// Marker pairs a discovered island descriptor with its container element.
type Marker struct {
	Descriptor island.Descriptor

	doc  *Document
	node *html.Node
}

// Container returns the render target for this marker.
func (m *Marker) Container() *Container {
	return &Container{doc: m.doc, node: m.node, id: m.Descriptor.ID}
}

// Container is the document-backed implementation of island.Container.
type Container struct {
	doc  *Document
	node *html.Node
	id   string
}

// ID returns the island id of the marker element.
func (c *Container) ID() string {
	return c.id
}

// SetHTML replaces the container's content with the parsed fragment.
func (c *Container) SetHTML(fragment string) error {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()

	nodes, err := parseFragment(fragment)
	if err != nil {
		return errors.WrapInvalid(err, "Container", "SetHTML", "fragment parsing")
	}

	replaceChildren(c.node, nodes)
	c.doc.revision++
	return nil
}

// FindMarkers scans the document for island markers and builds a descriptor
// from each marker's declared attributes. Malformed markers are collected
// separately so the caller can log and skip them; one bad marker never
// aborts the scan.
func (d *Document) FindMarkers() (markers []*Marker, malformed []error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := getAttr(n, AttrType); ok {
				marker, err := d.parseMarker(n)
				if err != nil {
					malformed = append(malformed, err)
				} else {
					markers = append(markers, marker)
				}
				// Islands never nest; skip the subtree
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)

	return markers, malformed
}

// parseMarker builds a descriptor from a marker element's attributes.
// Callers hold the lock.
func (d *Document) parseMarker(n *html.Node) (*Marker, error) {
	islandType, _ := getAttr(n, AttrType)

	id, ok := getAttr(n, AttrID)
	if !ok || id == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidMarker, "Document", "parseMarker",
			"missing "+AttrID+" attribute")
	}

	descriptor := island.Descriptor{
		ID:   id,
		Type: islandType,
	}

	if groups, ok := getAttr(n, AttrGroups); ok {
		descriptor.GroupTags = strings.Fields(groups)
	}

	props, err := d.markerProps(n)
	if err != nil {
		return nil, err
	}
	descriptor.InitialProperties = props

	if err := descriptor.Validate(); err != nil {
		return nil, errors.Wrap(err, "Document", "parseMarker", "descriptor validation")
	}

	return &Marker{Descriptor: descriptor, doc: d, node: n}, nil
}

// markerProps resolves the marker's properties payload, inline or by
// reference to a JSON script element.
func (d *Document) markerProps(n *html.Node) (json.RawMessage, error) {
	if inline, ok := getAttr(n, AttrProps); ok {
		if !json.Valid([]byte(inline)) {
			return nil, errors.WrapInvalid(errors.ErrInvalidProps, "Document", "markerProps",
				"inline properties not valid JSON")
		}
		return json.RawMessage(inline), nil
	}

	ref, ok := getAttr(n, AttrPropsRef)
	if !ok {
		return nil, nil
	}

	script := d.findByAttr("id", ref)
	if script == nil || script.DataAtom != atom.Script {
		return nil, errors.WrapInvalid(errors.ErrInvalidProps, "Document", "markerProps",
			"props-ref script element not found")
	}

	var text strings.Builder
	for c := script.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}

	payload := strings.TrimSpace(text.String())
	if !json.Valid([]byte(payload)) {
		return nil, errors.WrapInvalid(errors.ErrInvalidProps, "Document", "markerProps",
			"referenced properties not valid JSON")
	}

	return json.RawMessage(payload), nil
}
