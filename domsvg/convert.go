// Package domsvg converts a live, rendered element tree into a
// self-contained SVG snapshot. The element is deep-cloned, each clone node
// receives the computed style, live input values and rasterized pixels of
// its original, and the result is serialized into an SVG foreignObject.
//
// The converter is generic over the rendering engine: any tree exposing
// snapshot.Engine can be converted. Package dom provides an in-memory
// engine; Service drives a real browser.
package domsvg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/snapkit/domsvg/internal/inline"
	"github.com/hazyhaar/snapkit/domsvg/internal/markup"
	"github.com/hazyhaar/snapkit/domsvg/internal/pairing"
	"github.com/hazyhaar/snapkit/domsvg/internal/raster"
	"github.com/hazyhaar/snapkit/domsvg/snapshot"
	"github.com/hazyhaar/snapkit/idgen"
)

// DefaultDecodeTimeout bounds the wait for a rasterized image to decode.
const DefaultDecodeTimeout = 10 * time.Second

// Serializer renders a clone tree to markup.
type Serializer func(*html.Node) (string, error)

// Converter turns element trees of one engine into SVG snapshots. It is
// safe for concurrent use; each conversion works on its own clone.
type Converter[N any] struct {
	engine    snapshot.Engine[N]
	inliner   *inline.Inliner[N]
	serialize Serializer
	newID     idgen.Generator
	logger    *slog.Logger
}

// Option configures a Converter.
type Option func(*converterOptions)

type converterOptions struct {
	logger        *slog.Logger
	encoder       raster.Encoder
	decoder       raster.Decoder
	serialize     Serializer
	decodeTimeout time.Duration
	newID         idgen.Generator
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *converterOptions) { o.logger = l }
}

// WithEncoder sets the pixel buffer encoder. Default: PNG data URLs.
func WithEncoder(e raster.Encoder) Option {
	return func(o *converterOptions) { o.encoder = e }
}

// WithDecoder sets the image decoder. Default: in-process data URL decoding.
func WithDecoder(d raster.Decoder) Option {
	return func(o *converterOptions) { o.decoder = d }
}

// WithSerializer replaces the markup serializer.
func WithSerializer(s Serializer) Option {
	return func(o *converterOptions) { o.serialize = s }
}

// WithDecodeTimeout bounds each image decode. Zero or less disables the
// bound; the context still applies.
func WithDecodeTimeout(d time.Duration) Option {
	return func(o *converterOptions) { o.decodeTimeout = d }
}

// WithIDGenerator sets the generator for snapshot IDs.
func WithIDGenerator(g idgen.Generator) Option {
	return func(o *converterOptions) { o.newID = g }
}

// New creates a Converter for trees of engine.
func New[N any](engine snapshot.Engine[N], opts ...Option) *Converter[N] {
	o := converterOptions{
		encoder:       raster.PNG{},
		decoder:       raster.DataURL{},
		serialize:     markup.Serialize,
		decodeTimeout: DefaultDecodeTimeout,
		newID:         idgen.Prefixed("snap_", idgen.Default),
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Converter[N]{
		engine: engine,
		inliner: inline.New(engine,
			inline.WithEncoder(o.encoder),
			inline.WithDecoder(raster.WithTimeout(o.decoder, o.decodeTimeout)),
			inline.WithLogger(o.logger),
		),
		serialize: o.serialize,
		newID:     o.newID,
		logger:    o.logger,
	}
}

// Convert renders root into an SVG document.
func (c *Converter[N]) Convert(ctx context.Context, root N, opts *Options) (string, error) {
	svg, _, err := c.convert(ctx, root, opts)
	return svg, err
}

// Snapshot converts root and records the result with its metadata.
func (c *Converter[N]) Snapshot(ctx context.Context, root N, opts *Options) (*snapshot.Snapshot, error) {
	svg, stats, err := c.convert(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	snap := &snapshot.Snapshot{
		ID:        c.newID(),
		Width:     stats.width,
		Height:    stats.height,
		Nodes:     stats.nodes,
		SVG:       svg,
		SVGHash:   snapshot.HashSVG(svg),
		Timestamp: time.Now().UnixMilli(),
	}
	c.logger.Info("domsvg: snapshot",
		"id", snap.ID, "nodes", snap.Nodes, "width", snap.Width, "height", snap.Height, "bytes", len(svg))
	return snap, nil
}

type convertStats struct {
	width, height float64
	nodes         int
}

func (c *Converter[N]) convert(ctx context.Context, root N, opts *Options) (string, convertStats, error) {
	var stats convertStats

	box, err := c.engine.Layout(root)
	if err != nil {
		return "", stats, fmt.Errorf("domsvg: layout: %w", err)
	}
	stats.width, stats.height = Dimensions(box, opts)

	clone, err := c.engine.Clone(root)
	if err != nil {
		return "", stats, fmt.Errorf("domsvg: clone: %w", err)
	}
	if err := pairing.Verify(root, clone, c.engine.Children, markup.Children); err != nil {
		return "", stats, fmt.Errorf("domsvg: clone: %w", err)
	}

	w := pairing.NewWalker(root, clone, c.engine.Children, markup.Children)
	for p := range w.All() {
		if err := ctx.Err(); err != nil {
			return "", stats, fmt.Errorf("domsvg: convert: %w", err)
		}
		node, err := c.inliner.Inline(ctx, p)
		if err != nil {
			return "", stats, fmt.Errorf("domsvg: convert: %w", err)
		}
		if p.Index == 0 {
			// A raster root is replaced by a detached image.
			clone = node
		}
	}
	stats.nodes = w.Visited()

	if clone.Type == html.ElementNode && clone.Namespace == "" {
		markup.SetAttr(clone, "xmlns", markup.XHTMLNamespace)
	}
	payload, err := c.serialize(clone)
	if err != nil {
		return "", stats, fmt.Errorf("domsvg: serialize: %w", err)
	}

	c.logger.Debug("domsvg: converted", "nodes", stats.nodes, "payload", len(payload))
	return Envelope(stats.width, stats.height, Escape(payload)), stats, nil
}
