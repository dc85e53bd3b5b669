// Package markup edits and serialises clone trees built from
// golang.org/x/net/html nodes.
package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Namespace URIs. XHTMLNamespace is declared on the clone root so the
// payload parses as XHTML inside a foreignObject.
const (
	XHTMLNamespace  = "http://www.w3.org/1999/xhtml"
	SVGNamespace    = "http://www.w3.org/2000/svg"
	MathMLNamespace = "http://www.w3.org/1998/Math/MathML"
	XLinkNamespace  = "http://www.w3.org/1999/xlink"
)

// Children returns the child nodes of n in document order. A nil node has
// no children.
func Children(n *html.Node) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Attr returns the value of the attribute key and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets the attribute key, replacing an existing value in place.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// SetText replaces the text content of n without changing its number of
// children: a single existing text child is rewritten, an empty element
// gets one text child when s is not empty. Any other content is replaced
// by one text node.
func SetText(n *html.Node, s string) {
	kids := Children(n)
	switch {
	case len(kids) == 1 && kids[0].Type == html.TextNode:
		kids[0].Data = s
	case len(kids) == 0:
		if s != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
		}
	default:
		for _, c := range kids {
			n.RemoveChild(c)
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

// Text returns the concatenated text of the direct text children of n.
func Text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// NewImage returns a detached <img> element displaying src.
func NewImage(src string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "img",
		DataAtom: atom.Img,
		Attr:     []html.Attribute{{Key: "src", Val: src}},
	}
}

// Replace puts repl at the tree position of old and detaches old. A
// detached old node is left as is; the caller owns the new root then.
func Replace(old, repl *html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	parent.InsertBefore(repl, old)
	parent.RemoveChild(old)
}
