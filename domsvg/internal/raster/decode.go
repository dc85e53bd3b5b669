package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/url"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Decoded is an image URL that finished loading.
type Decoded struct {
	URL    string
	Width  int
	Height int
}

// Decoder loads an image URL into a displayable image.
type Decoder interface {
	Decode(ctx context.Context, url string) (Decoded, error)
}

// DataURL decodes data: URLs in process.
type DataURL struct{}

// Decode implements Decoder.
func (DataURL) Decode(ctx context.Context, raw string) (Decoded, error) {
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	_, data, err := ParseDataURL(raw)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Decoded{URL: raw, Width: cfg.Width, Height: cfg.Height}, nil
}

// ParseDataURL splits a data: URL into its media type and payload.
func ParseDataURL(raw string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data URL has no payload separator")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = "text/plain;charset=US-ASCII"
	}
	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("base64 payload: %w", err)
		}
		return mediaType, data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("percent-encoded payload: %w", err)
	}
	return mediaType, []byte(s), nil
}

// WithTimeout bounds every decode of dec by d. The inner decode runs on
// its own goroutine so decoders that ignore their context are bounded too.
// A non-positive d returns dec unchanged.
func WithTimeout(dec Decoder, d time.Duration) Decoder {
	if d <= 0 {
		return dec
	}
	return timeoutDecoder{dec: dec, timeout: d}
}

type timeoutDecoder struct {
	dec     Decoder
	timeout time.Duration
}

func (t timeoutDecoder) Decode(ctx context.Context, raw string) (Decoded, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		img Decoded
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := t.dec.Decode(ctx, raw)
		done <- result{img, err}
	}()

	var r result
	select {
	case r = <-done:
		if r.err == nil {
			return r.img, nil
		}
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	// Decoders that honour ctx report the deadline themselves.
	if errors.Is(r.err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Decoded{}, fmt.Errorf("%w after %s", ErrDecodeTimeout, t.timeout)
	}
	return Decoded{}, r.err
}
