// Package snapshot holds the types shared by the domsvg converter, its
// rendering engines and its consumers: node kinds, computed style
// declarations, layout boxes, the Engine contract and the Snapshot result.
package snapshot

import (
	"image"

	"golang.org/x/net/html"
)

// Kind is the content class of a live node, read once per node.
type Kind int

const (
	KindOther         Kind = iota // text, comment, anything that is not an element
	KindElement                   // generic markup element
	KindRasterSurface             // element holding a live pixel buffer (canvas)
	KindImage                     // image element
	KindInput                     // single-line input; live value lives outside the markup
	KindTextArea                  // multi-line input
)

var kindNames = [...]string{
	KindOther:         "other",
	KindElement:       "element",
	KindRasterSurface: "raster-surface",
	KindImage:         "image",
	KindInput:         "input",
	KindTextArea:      "textarea",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsElement reports whether nodes of this kind receive inline styles.
func (k Kind) IsElement() bool { return k != KindOther }

// Declaration is one computed style property as read from the engine.
// Priority is "important" or empty.
type Declaration struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Priority string `json:"priority,omitempty"`
}

// Important reports whether the declaration carries the important flag.
func (d Declaration) Important() bool { return d.Priority == "important" }

// Box is the live layout box of an element, in CSS pixels.
type Box struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageSource is the decoded content of an image element. Width is the
// natural width, Height the rendered height: the offscreen surface the
// image is drawn onto has exactly these dimensions.
type ImageSource struct {
	Image  image.Image
	Width  int
	Height int
}

// Engine is the rendering engine a conversion reads live state from.
// N is the engine's node handle type. Every method is synchronous and
// read-only with respect to the live tree.
type Engine[N any] interface {
	// Kind classifies n.
	Kind(n N) Kind
	// Children returns the child nodes of n in document order.
	Children(n N) []N
	// Layout returns the layout box of n.
	Layout(n N) (Box, error)
	// ComputedStyle returns every computed property of an element, in the
	// engine's enumeration order.
	ComputedStyle(n N) ([]Declaration, error)
	// Value returns the live value of an input or textarea.
	Value(n N) (string, error)
	// Surface returns the current pixel buffer of a raster surface.
	Surface(n N) (image.Image, error)
	// Image returns the pixels of an image element.
	Image(n N) (ImageSource, error)
	// Clone returns a deep structural copy of the subtree rooted at n.
	// Clones carry attributes only, never live state.
	Clone(n N) (*html.Node, error)
}
