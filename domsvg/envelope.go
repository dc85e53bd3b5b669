package domsvg

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/snapkit/domsvg/snapshot"
)

// Options sizes the envelope. Nil fields fall back to the layout box of
// the converted element.
type Options struct {
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	// Size scales both dimensions. Zero means 1.
	Size float64 `json:"size,omitempty"`
}

// Dimensions returns the envelope width and height. The scale factor only
// changes the declared dimensions; the payload is not re-rendered.
func Dimensions(box snapshot.Box, opts *Options) (w, h float64) {
	w, h = box.Width, box.Height
	if opts == nil {
		return w, h
	}
	if opts.Width != nil {
		w = *opts.Width
	}
	if opts.Height != nil {
		h = *opts.Height
	}
	if size := opts.Size; size != 0 && size != 1 {
		w *= size
		h *= size
	}
	return w, h
}

var payloadEscaper = strings.NewReplacer(
	"%", "%25",
	"#", "%23",
	"\n", "%0A",
)

// Escape makes a serialized payload safe to embed in a data URL: '%', '#'
// and newlines are percent-encoded in a single pass.
func Escape(s string) string {
	return payloadEscaper.Replace(s)
}

// Envelope wraps payload in an SVG document whose foreignObject spans the
// whole w×h canvas.
func Envelope(w, h float64, payload string) string {
	var b strings.Builder
	b.Grow(len(payload) + 160)
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	b.WriteString(formatNumber(w))
	b.WriteString(`" height="`)
	b.WriteString(formatNumber(h))
	b.WriteString(`"><foreignObject x="0" y="0" width="100%" height="100%">`)
	b.WriteString(payload)
	b.WriteString(`</foreignObject></svg>`)
	return b.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
