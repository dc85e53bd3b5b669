// Package inline makes clone nodes visually self-sufficient: raster
// content is baked into images, live input values into markup and
// computed style into literal inline declarations.
package inline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/hazyhaar/snapkit/domsvg/internal/markup"
	"github.com/hazyhaar/snapkit/domsvg/internal/pairing"
	"github.com/hazyhaar/snapkit/domsvg/internal/raster"
	"github.com/hazyhaar/snapkit/domsvg/snapshot"
)

// ErrMissingClone is returned when an element has no clone counterpart.
var ErrMissingClone = errors.New("inline: element has no clone")

// Pair is a matched original node and its clone.
type Pair[N any] = pairing.Pair[N, *html.Node]

// Inliner applies the content and style policy to one pair at a time.
type Inliner[N any] struct {
	engine  snapshot.Engine[N]
	encoder raster.Encoder
	decoder raster.Decoder
	logger  *slog.Logger
}

// Option configures an Inliner.
type Option func(*options)

type options struct {
	encoder raster.Encoder
	decoder raster.Decoder
	logger  *slog.Logger
}

// WithEncoder sets the pixel buffer encoder. Default: raster.PNG.
func WithEncoder(e raster.Encoder) Option {
	return func(o *options) { o.encoder = e }
}

// WithDecoder sets the image decoder. Default: raster.DataURL.
func WithDecoder(d raster.Decoder) Option {
	return func(o *options) { o.decoder = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates an Inliner reading live state from engine.
func New[N any](engine snapshot.Engine[N], opts ...Option) *Inliner[N] {
	o := options{
		encoder: raster.PNG{},
		decoder: raster.DataURL{},
		logger:  slog.Default(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Inliner[N]{engine: engine, encoder: o.encoder, decoder: o.decoder, logger: o.logger}
}

// Inline mutates the clone of p and returns the node now occupying its
// tree position: a substituted image for raster content, the clone itself
// otherwise. Non-element nodes are left untouched, and so is the content
// of raster nodes with a zero-area surface.
func (in *Inliner[N]) Inline(ctx context.Context, p Pair[N]) (*html.Node, error) {
	kind := in.engine.Kind(p.Original)
	if !kind.IsElement() {
		return p.Clone, nil
	}
	if !p.HasClone || p.Clone == nil {
		return nil, fmt.Errorf("%w: %s at index %d", ErrMissingClone, kind, p.Index)
	}

	target, err := in.content(ctx, kind, p)
	if err != nil {
		return nil, err
	}

	style, err := in.engine.ComputedStyle(p.Original)
	if err != nil {
		return nil, fmt.Errorf("inline: computed style of node %d: %w", p.Index, err)
	}
	markup.SetStyle(target, style)
	return target, nil
}

func (in *Inliner[N]) content(ctx context.Context, kind snapshot.Kind, p Pair[N]) (*html.Node, error) {
	switch kind {
	case snapshot.KindRasterSurface:
		pixels, err := in.engine.Surface(p.Original)
		if err != nil {
			return nil, fmt.Errorf("inline: surface of node %d: %w", p.Index, err)
		}
		if pixels != nil && pixels.Bounds().Empty() {
			in.logger.Debug("inline: empty surface left as is", "index", p.Index)
			return p.Clone, nil
		}
		return in.substitute(ctx, p, pixels)

	case snapshot.KindImage:
		src, err := in.engine.Image(p.Original)
		if err != nil {
			return nil, fmt.Errorf("inline: image of node %d: %w", p.Index, err)
		}
		if src.Width == 0 || src.Height == 0 {
			// Nothing to draw: the clone keeps its own src.
			in.logger.Debug("inline: zero-area image left as is",
				"index", p.Index, "width", src.Width, "height", src.Height)
			return p.Clone, nil
		}
		surface, err := raster.Draw(src)
		if err != nil {
			return nil, fmt.Errorf("inline: rasterize node %d: %w", p.Index, err)
		}
		return in.substitute(ctx, p, surface)

	case snapshot.KindInput:
		v, err := in.engine.Value(p.Original)
		if err != nil {
			return nil, fmt.Errorf("inline: value of node %d: %w", p.Index, err)
		}
		markup.SetAttr(p.Clone, "value", v)

	case snapshot.KindTextArea:
		v, err := in.engine.Value(p.Original)
		if err != nil {
			return nil, fmt.Errorf("inline: value of node %d: %w", p.Index, err)
		}
		markup.SetText(p.Clone, v)
	}
	return p.Clone, nil
}

// substitute encodes pixels, waits for the decode and swaps the clone for
// the resulting image element.
func (in *Inliner[N]) substitute(ctx context.Context, p Pair[N], pixels image.Image) (*html.Node, error) {
	url, err := in.encoder.Encode(pixels)
	if err != nil {
		return nil, fmt.Errorf("inline: encode node %d: %w", p.Index, err)
	}
	decoded, err := in.decoder.Decode(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("inline: decode node %d: %w", p.Index, err)
	}

	repl := markup.NewImage(decoded.URL)
	markup.Replace(p.Clone, repl)
	in.logger.Debug("inline: raster substituted",
		"index", p.Index, "tag", p.Clone.Data, "width", decoded.Width, "height", decoded.Height)
	return repl, nil
}
