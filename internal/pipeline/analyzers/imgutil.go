package analyzers

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// decode decodes image bytes using the standard library registry plus
// the WebP decoder registered by the teacher's validator.
func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// grayscaleBuffer holds a grayscale image as a flat row-major float64
// buffer in [0,255], alongside its dimensions.
type grayscaleBuffer struct {
	w, h int
	px   []float64
}

func (g *grayscaleBuffer) at(x, y int) float64 {
	if x < 0 || x >= g.w || y < 0 || y >= g.h {
		return 0
	}
	return g.px[y*g.w+x]
}

// toGrayscaleBuffer downscales src to fit within maxW×maxH (no
// enlargement) and converts it to a normalized grayscale float buffer,
// grounded on the teacher's imaging.Fit/imaging.Grayscale usage.
func toGrayscaleBuffer(src image.Image, maxW, maxH int) *grayscaleBuffer {
	bounds := src.Bounds()
	resized := src
	if bounds.Dx() > maxW || bounds.Dy() > maxH {
		resized = imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	}
	gray := imaging.Grayscale(resized)

	b := gray.Bounds()
	buf := &grayscaleBuffer{w: b.Dx(), h: b.Dy(), px: make([]float64, b.Dx()*b.Dy())}
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := gray.At(x, y).RGBA()
			buf.px[idx] = float64(r >> 8)
			idx++
		}
	}
	return buf
}

// meanStd computes the mean and population standard deviation of a
// float64 slice.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	std = math.Sqrt(sqDiff / float64(len(values)))
	return mean, std
}

// convolve3x3 applies a 3×3 kernel to a grayscale buffer. Pixels outside
// the buffer read as 0 (at()'s zero-padding), which is adequate for the
// statistical thresholds used here.
func convolve3x3(g *grayscaleBuffer, kernel [3][3]float64) *grayscaleBuffer {
	out := &grayscaleBuffer{w: g.w, h: g.h, px: make([]float64, g.w*g.h)}
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			var sum float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sum += g.at(x+kx, y+ky) * kernel[ky+1][kx+1]
				}
			}
			out.px[y*g.w+x] = sum
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// rgbColorStd computes the average per-channel standard deviation over
// an RGB image, used by the face stage's portrait-override color test.
func rgbColorStd(img image.Image) float64 {
	bounds := img.Bounds()
	var rs, gs, bs []float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 4 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 4 {
			r, g, b, _ := img.At(x, y).RGBA()
			rs = append(rs, float64(r>>8))
			gs = append(gs, float64(g>>8))
			bs = append(bs, float64(b>>8))
		}
	}
	_, rStd := meanStd(rs)
	_, gStd := meanStd(gs)
	_, bStd := meanStd(bs)
	return (rStd + gStd + bStd) / 3
}
