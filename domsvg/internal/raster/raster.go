// Package raster converts pixel buffers into image data URLs and decodes
// those URLs back into displayable images.
package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/hazyhaar/snapkit/domsvg/snapshot"
)

var (
	// ErrEncode is returned when a pixel buffer cannot be encoded.
	ErrEncode = errors.New("raster: encode failed")
	// ErrDecode is returned when a data URL does not hold a loadable image.
	ErrDecode = errors.New("raster: decode failed")
	// ErrDecodeTimeout is returned when a decode does not complete in time.
	ErrDecodeTimeout = errors.New("raster: decode timed out")
)

// Encoder turns a pixel buffer into an image data URL.
type Encoder interface {
	Encode(img image.Image) (string, error)
}

// PNG encodes pixel buffers as base64 PNG data URLs.
type PNG struct{}

// Encode implements Encoder.
func (PNG) Encode(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: no pixel buffer", ErrEncode)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Draw paints an image element onto a fresh offscreen surface sized to
// its natural width and rendered height. The image is drawn unscaled at
// the origin; whatever falls outside the surface is clipped.
func Draw(src snapshot.ImageSource) (*image.RGBA, error) {
	if src.Width < 0 || src.Height < 0 {
		return nil, fmt.Errorf("%w: negative surface %dx%d", ErrEncode, src.Width, src.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))
	if src.Image != nil {
		draw.Copy(dst, image.Point{}, src.Image, src.Image.Bounds(), draw.Over, nil)
	}
	return dst, nil
}
