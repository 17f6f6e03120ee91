package analyzers

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
)

// encodeJPEG renders a deterministic pseudo-random-noise image at
// width×height and JPEG-encodes it at the given quality. Noise content
// keeps the encoded size from collapsing the way a flat fill would.
func encodeJPEG(width, height, quality int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rnd := rand.New(rand.NewSource(int64(width*31 + height)))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rnd.Intn(256)),
				G: uint8(rnd.Intn(256)),
				B: uint8(rnd.Intn(256)),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// encodeFlatJPEG renders a uniform solid-color image, producing a highly
// compressible (hence low-entropy, low-sigma) JPEG, used as a synthetic
// "blurry"/featureless stand-in.
func encodeFlatJPEG(width, height int, shade uint8) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: shade})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// padTo appends trailing bytes after the JPEG EOI marker to reach at
// least n total bytes. image.DecodeConfig only reads the header, so the
// padding does not affect decodability.
func padTo(data []byte, n int) []byte {
	if len(data) >= n {
		return data
	}
	pad := make([]byte, n-len(data))
	return append(data, pad...)
}
