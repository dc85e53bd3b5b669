package dom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/snapkit/domsvg/internal/markup"
	"github.com/hazyhaar/snapkit/domsvg/internal/raster"
	"github.com/hazyhaar/snapkit/domsvg/snapshot"
)

// FromHTML parses a document and returns its body. Without a browser there
// is no cascade: the computed style of each element is its style attribute.
func FromHTML(r io.Reader) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse html: %w", err)
	}
	body := findElement(doc, "body")
	if body == nil {
		return nil, fmt.Errorf("dom: parse html: no body")
	}
	return Wrap(body), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := range n.ChildNodes() {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// Wrap converts a parsed tree into a rendered tree. Live values start at
// their defaults: the value attribute of an input, the text of a textarea.
// Layout comes from numeric width and height attributes.
func Wrap(h *html.Node) *Node {
	n := &Node{}
	switch h.Type {
	case html.TextNode:
		n.Type, n.Data = TextNode, h.Data
		return n
	case html.CommentNode:
		n.Type, n.Data = CommentNode, h.Data
		return n
	case html.ElementNode:
	default:
		// Documents and doctypes carry no rendering of their own.
		n.Type, n.Data = CommentNode, ""
		return n
	}

	n.Type = ElementNode
	n.Namespace, n.Tag = h.Namespace, h.Data
	if n.Namespace == "" {
		n.Tag = strings.ToLower(h.Data)
	}
	n.Attrs = append([]html.Attribute(nil), h.Attr...)
	for _, d := range markup.InlineStyle(h) {
		decl := snapshot.Declaration{Name: d.Property, Value: d.Value}
		if d.Important {
			decl.Priority = "important"
		}
		n.Style = append(n.Style, decl)
	}
	n.Box = snapshot.Box{Width: attrFloat(h, "width"), Height: attrFloat(h, "height")}
	switch n.Kind() {
	case snapshot.KindInput:
		n.Value, _ = markup.Attr(h, "value")
	case snapshot.KindTextArea:
		n.Value = markup.Text(h)
	case snapshot.KindRasterSurface:
		w, hh := int(n.Box.Width), int(n.Box.Height)
		if w == 0 && hh == 0 {
			w, hh = 300, 150
		}
		n.Surface = image.NewRGBA(image.Rect(0, 0, w, hh))
	case snapshot.KindImage:
		n.Source = imageSource(h, &n.Box)
	}

	for c := range h.ChildNodes() {
		n.Append(Wrap(c))
	}
	return n
}

// imageSource reads the natural size of an image element from its data:
// src when there is one, otherwise from its width and height attributes.
// The rendered height is the height attribute, falling back to the natural
// height; a missing layout box takes the natural size.
func imageSource(h *html.Node, box *snapshot.Box) *snapshot.ImageSource {
	src := &snapshot.ImageSource{Width: int(box.Width), Height: int(box.Height)}
	raw, _ := markup.Attr(h, "src")
	if !strings.HasPrefix(strings.TrimSpace(raw), "data:") {
		return src
	}
	img, err := decodePixels(strings.TrimSpace(raw))
	if err != nil {
		return src
	}
	b := img.Bounds()
	src.Image, src.Width = img, b.Dx()
	if src.Height == 0 {
		src.Height = b.Dy()
	}
	if box.Width == 0 && box.Height == 0 {
		box.Width, box.Height = float64(b.Dx()), float64(src.Height)
	}
	return src
}

func attrFloat(h *html.Node, key string) float64 {
	v, ok := markup.Attr(h, key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// captured is the wire shape of one node as reported by the browser
// capture script.
type captured struct {
	Type     string      `json:"type"`
	NS       string      `json:"ns,omitempty"`
	Tag      string      `json:"tag,omitempty"`
	Attrs    [][2]string `json:"attrs,omitempty"`
	Data     string      `json:"data,omitempty"`
	Value    string      `json:"value,omitempty"`
	Width    float64     `json:"width,omitempty"`
	Height   float64     `json:"height,omitempty"`
	Style    [][3]string `json:"style,omitempty"`
	Pixels   string      `json:"pixels,omitempty"`
	Natural  int         `json:"naturalWidth,omitempty"`
	Rendered int         `json:"renderedHeight,omitempty"`
	Children []captured  `json:"children,omitempty"`
}

// Decode builds a rendered tree from capture JSON. Pixel data arrives as
// image data: URLs.
func Decode(data []byte) (*Node, error) {
	var root captured
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("dom: decode capture: %w", err)
	}
	return fromCaptured(&root)
}

func fromCaptured(c *captured) (*Node, error) {
	n := &Node{}
	switch c.Type {
	case "text":
		n.Type, n.Data = TextNode, c.Data
		return n, nil
	case "comment":
		n.Type, n.Data = CommentNode, c.Data
		return n, nil
	case "element":
	default:
		return nil, fmt.Errorf("dom: decode capture: unknown node type %q", c.Type)
	}

	n.Type = ElementNode
	n.Namespace, n.Tag = namespace(c.NS), c.Tag
	if n.Namespace == "" {
		n.Tag = strings.ToLower(c.Tag)
	}
	n.Value = c.Value
	n.Box = snapshot.Box{Width: c.Width, Height: c.Height}
	for _, a := range c.Attrs {
		n.Attrs = append(n.Attrs, html.Attribute{Key: a[0], Val: a[1]})
	}
	for _, s := range c.Style {
		n.Style = append(n.Style, snapshot.Declaration{Name: s[0], Value: s[1], Priority: s[2]})
	}

	switch n.Kind() {
	case snapshot.KindRasterSurface:
		if c.Pixels != "" {
			img, err := decodePixels(c.Pixels)
			if err != nil {
				return nil, fmt.Errorf("dom: decode capture: canvas: %w", err)
			}
			n.Surface = img
		}
	case snapshot.KindImage:
		src := &snapshot.ImageSource{Width: c.Natural, Height: c.Rendered}
		if c.Pixels != "" {
			img, err := decodePixels(c.Pixels)
			if err != nil {
				return nil, fmt.Errorf("dom: decode capture: img: %w", err)
			}
			src.Image = img
		}
		n.Source = src
	}

	for i := range c.Children {
		child, err := fromCaptured(&c.Children[i])
		if err != nil {
			return nil, err
		}
		n.Append(child)
	}
	return n, nil
}

// namespace maps a namespace URI to the short name golang.org/x/net/html
// uses. Unknown namespaces are kept as URIs.
func namespace(uri string) string {
	switch uri {
	case "", markup.XHTMLNamespace:
		return ""
	case markup.SVGNamespace:
		return NamespaceSVG
	case markup.MathMLNamespace:
		return NamespaceMathML
	}
	return uri
}

func decodePixels(dataURL string) (image.Image, error) {
	_, data, err := raster.ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}
