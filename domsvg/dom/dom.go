// Package dom is an in-memory rendered tree: every node carries the live
// state a browser would report for it (computed style, layout box, input
// value, pixels). It implements snapshot.Engine so a captured page, or a
// hand-built tree, can be converted without a running browser.
package dom

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/snapkit/domsvg/snapshot"
)

// ErrNoPixels is returned when a raster node has no pixel buffer.
var ErrNoPixels = errors.New("dom: node has no pixel buffer")

// Namespaces of foreign elements, named the way golang.org/x/net/html
// names them. HTML elements have an empty namespace.
const (
	NamespaceSVG    = "svg"
	NamespaceMathML = "math"
)

// NodeType distinguishes elements from character data.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
	CommentNode
)

// Node is one node of a rendered tree.
type Node struct {
	Type      NodeType
	Namespace string // "" for HTML, NamespaceSVG, NamespaceMathML
	Tag       string // local name, lowercase for HTML elements
	Attrs     []html.Attribute
	Data      string // text or comment content

	// Live state.
	Value   string // current value of an input or textarea
	Style   []snapshot.Declaration
	Box     snapshot.Box
	Surface image.Image           // canvas pixel buffer
	Source  *snapshot.ImageSource // decoded image element

	Parent   *Node
	Children []*Node
}

// Element returns a detached element. attrs are key/value pairs.
func Element(tag string, attrs ...string) *Node {
	n := &Node{Type: ElementNode, Tag: strings.ToLower(tag)}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs = append(n.Attrs, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// ElementNS returns a detached element in a foreign namespace. The case of
// tag is kept.
func ElementNS(ns, tag string, attrs ...string) *Node {
	n := Element(tag, attrs...)
	n.Namespace, n.Tag = ns, tag
	return n
}

// Text returns a detached text node.
func Text(s string) *Node { return &Node{Type: TextNode, Data: s} }

// Comment returns a detached comment node.
func Comment(s string) *Node { return &Node{Type: CommentNode, Data: s} }

// Append adds children to n and returns n.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// Attr returns the value of attribute key.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetStyle replaces the computed style of n. pairs alternate property
// names and values.
func (n *Node) SetStyle(pairs ...string) *Node {
	n.Style = n.Style[:0]
	for i := 0; i+1 < len(pairs); i += 2 {
		n.Style = append(n.Style, snapshot.Declaration{Name: pairs[i], Value: pairs[i+1]})
	}
	return n
}

// SetValue sets the live value of an input or textarea.
func (n *Node) SetValue(v string) *Node {
	n.Value = v
	return n
}

// SetBox sets the layout box.
func (n *Node) SetBox(w, h float64) *Node {
	n.Box = snapshot.Box{Width: w, Height: h}
	return n
}

// Find returns the first node in pre-order whose id attribute is id.
func (n *Node) Find(id string) *Node {
	if v, ok := n.Attr("id"); ok && v == id {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Kind classifies n.
func (n *Node) Kind() snapshot.Kind {
	if n.Type != ElementNode {
		return snapshot.KindOther
	}
	if n.Namespace != "" {
		return snapshot.KindElement
	}
	switch n.Tag {
	case "canvas":
		return snapshot.KindRasterSurface
	case "img":
		return snapshot.KindImage
	case "input":
		return snapshot.KindInput
	case "textarea":
		return snapshot.KindTextArea
	}
	return snapshot.KindElement
}

// Engine reads live state straight from Node fields.
type Engine struct{}

var _ snapshot.Engine[*Node] = Engine{}

func (Engine) Kind(n *Node) snapshot.Kind { return n.Kind() }

func (Engine) Children(n *Node) []*Node { return n.Children }

func (Engine) Layout(n *Node) (snapshot.Box, error) { return n.Box, nil }

func (Engine) ComputedStyle(n *Node) ([]snapshot.Declaration, error) {
	out := make([]snapshot.Declaration, len(n.Style))
	copy(out, n.Style)
	return out, nil
}

func (Engine) Value(n *Node) (string, error) {
	switch n.Kind() {
	case snapshot.KindInput, snapshot.KindTextArea:
		return n.Value, nil
	}
	return "", fmt.Errorf("dom: <%s> has no live value", n.Tag)
}

func (Engine) Surface(n *Node) (image.Image, error) {
	if n.Surface == nil {
		return nil, fmt.Errorf("%w: <%s>", ErrNoPixels, n.Tag)
	}
	return n.Surface, nil
}

func (Engine) Image(n *Node) (snapshot.ImageSource, error) {
	if n.Source == nil {
		return snapshot.ImageSource{}, fmt.Errorf("%w: <%s>", ErrNoPixels, n.Tag)
	}
	return *n.Source, nil
}

// Clone copies the markup of the subtree rooted at n. Live state stays
// behind: an input clone only has its value attribute, if any.
func (Engine) Clone(n *Node) (*html.Node, error) {
	return clone(n), nil
}

func clone(n *Node) *html.Node {
	var c *html.Node
	switch n.Type {
	case TextNode:
		c = &html.Node{Type: html.TextNode, Data: n.Data}
	case CommentNode:
		c = &html.Node{Type: html.CommentNode, Data: n.Data}
	default:
		c = &html.Node{
			Type:      html.ElementNode,
			Data:      n.Tag,
			Namespace: n.Namespace,
			Attr:      append([]html.Attribute(nil), n.Attrs...),
		}
		if n.Namespace == "" {
			c.DataAtom = atom.Lookup([]byte(n.Tag))
		}
	}
	for _, child := range n.Children {
		c.AppendChild(clone(child))
	}
	return c
}
