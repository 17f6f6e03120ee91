package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const (
	derivativeMaxDim    = 800
	derivativeJPEGQuality = 80
)

// derivative is the canonical-derivative bytes and metadata produced on
// full pipeline acceptance (§4.4 step 5).
type derivative struct {
	Data   []byte
	Width  int
	Height int
	Format string
}

// buildDerivative resizes src to fit within 800×800 without enlargement
// and re-encodes it as JPEG quality 80, matching §4.4 step 5 exactly.
func buildDerivative(src image.Image) (*derivative, error) {
	bounds := src.Bounds()
	resized := src
	if bounds.Dx() > derivativeMaxDim || bounds.Dy() > derivativeMaxDim {
		resized = imaging.Fit(src, derivativeMaxDim, derivativeMaxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: derivativeJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode derivative: %w", err)
	}

	out := resized.Bounds()
	return &derivative{
		Data:   buf.Bytes(),
		Width:  out.Dx(),
		Height: out.Dy(),
		Format: "jpeg",
	}, nil
}
