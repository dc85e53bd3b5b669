package markup

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ErrNotSerializable is returned for a tree that has no well-formed XML
// form, such as an element whose name is not an XML name.
var ErrNotSerializable = errors.New("markup: tree not serializable as XML")

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// NamespaceURI returns the URI of a golang.org/x/net/html namespace name.
// The empty name is HTML. Unknown names are taken to be URIs already.
func NamespaceURI(ns string) string {
	switch ns {
	case "":
		return XHTMLNamespace
	case "svg":
		return SVGNamespace
	case "math":
		return MathMLNamespace
	}
	return ns
}

// Serialize writes the subtree rooted at n as well-formed XML. Text is
// escaped everywhere, script and style content included, and written
// verbatim otherwise: no newline is added after pre or textarea. Empty
// void and foreign elements are self-closed. An element whose namespace
// differs from its parent's declares it; the root's parent is taken to be
// HTML. Attributes whose names are not XML names, or carry a prefix other
// than xml, xlink or xmlns, are dropped.
func Serialize(n *html.Node) (string, error) {
	var b strings.Builder
	if err := serialize(&b, n, ""); err != nil {
		return "", fmt.Errorf("markup: serialize: %w", err)
	}
	return b.String(), nil
}

func serialize(b *strings.Builder, n *html.Node, parentNS string) error {
	switch n.Type {
	case html.DocumentNode:
		return serializeChildren(b, n, parentNS)
	case html.DoctypeNode:
		return nil
	case html.TextNode, html.RawNode:
		escape(b, n.Data, false)
		return nil
	case html.CommentNode:
		b.WriteString("<!--")
		b.WriteString(commentText(n.Data))
		b.WriteString("-->")
		return nil
	case html.ElementNode:
	default:
		return fmt.Errorf("%w: node type %d", ErrNotSerializable, n.Type)
	}

	if !validName(n.Data) {
		return fmt.Errorf("%w: element name %q", ErrNotSerializable, n.Data)
	}
	uri := NamespaceURI(n.Namespace)
	declare := n.Namespace != parentNS

	b.WriteByte('<')
	b.WriteString(n.Data)
	var usesXLink, declaresXLink bool
	for _, a := range n.Attr {
		name := attrName(a)
		switch {
		case name == "xmlns":
			if declare || a.Val != uri {
				continue
			}
		case name == "xmlns:xlink":
			declaresXLink = true
		case strings.HasPrefix(name, "xlink:"):
			usesXLink = true
		}
		if !validName(name) || !boundPrefix(name) {
			continue
		}
		writeAttr(b, name, a.Val)
	}
	if declare {
		writeAttr(b, "xmlns", uri)
	}
	if usesXLink && !declaresXLink {
		writeAttr(b, "xmlns:xlink", XLinkNamespace)
	}

	if n.FirstChild == nil && (n.Namespace != "" || voidElements[n.Data]) {
		b.WriteString("/>")
		return nil
	}
	b.WriteByte('>')
	if err := serializeChildren(b, n, n.Namespace); err != nil {
		return err
	}
	b.WriteString("</")
	b.WriteString(n.Data)
	b.WriteByte('>')
	return nil
}

func serializeChildren(b *strings.Builder, n *html.Node, ns string) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := serialize(b, c, ns); err != nil {
			return err
		}
	}
	return nil
}

func writeAttr(b *strings.Builder, name, val string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	escape(b, val, true)
	b.WriteByte('"')
}

// attrName returns the qualified name of a, restoring the prefix the HTML
// parser moves into Namespace for xlink:, xml: and xmlns: attributes.
func attrName(a html.Attribute) string {
	switch a.Namespace {
	case "":
		return a.Key
	case "xmlns":
		if a.Key == "" || a.Key == "xmlns" {
			return "xmlns"
		}
	}
	return a.Namespace + ":" + a.Key
}

// boundPrefix reports whether the prefix of a qualified attribute name is
// one a namespace-aware parser resolves without a declaration in the
// payload. xlink is declared on demand.
func boundPrefix(name string) bool {
	prefix, _, ok := strings.Cut(name, ":")
	if !ok {
		return true
	}
	switch prefix {
	case "xml", "xlink", "xmlns":
		return true
	}
	return false
}

// escape writes s with markup characters replaced by entities. Characters
// XML does not allow are replaced by U+FFFD.
func escape(b *strings.Builder, s string, attr bool) {
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '"' && attr:
			b.WriteString("&quot;")
		case !xmlChar(r):
			b.WriteRune(utf8.RuneError)
		default:
			b.WriteRune(r)
		}
	}
}

// commentText keeps comment data inside the XML comment grammar: no "--"
// and no trailing '-'.
func commentText(s string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range s {
		if r == '-' && prev == '-' {
			b.WriteByte(' ')
		}
		if !xmlChar(r) {
			r = utf8.RuneError
		}
		b.WriteRune(r)
		prev = r
	}
	if prev == '-' {
		b.WriteByte(' ')
	}
	return b.String()
}

func xmlChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF, r >= 0xE000 && r <= 0xFFFD, r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// validName reports whether s is an XML name usable under namespaces: it
// does not start with a colon or a digit and holds only name characters.
func validName(s string) bool {
	if s == "" || strings.HasPrefix(s, ":") || strings.HasSuffix(s, ":") {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i == 0:
			return false
		case r == '-' || r == '.' || r == ':' || r == 0xB7 ||
			unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc):
		default:
			return false
		}
	}
	return true
}
