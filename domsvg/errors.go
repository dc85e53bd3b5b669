package domsvg

import (
	"github.com/hazyhaar/snapkit/domsvg/internal/inline"
	"github.com/hazyhaar/snapkit/domsvg/internal/pairing"
	"github.com/hazyhaar/snapkit/domsvg/internal/raster"
	"github.com/hazyhaar/snapkit/horosafe"
)

// Errors returned by conversions and captures. Check with errors.Is.
var (
	ErrShapeMismatch = pairing.ErrShapeMismatch
	ErrMissingClone  = inline.ErrMissingClone
	ErrEncode        = raster.ErrEncode
	ErrDecode        = raster.ErrDecode
	ErrDecodeTimeout = raster.ErrDecodeTimeout
	ErrSSRF          = horosafe.ErrSSRF
	ErrUnsafeScheme  = horosafe.ErrUnsafeScheme
)
