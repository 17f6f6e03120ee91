package analyzers

import (
	"context"
	"fmt"
	"math"

	"photoadmit/internal/records"
)

// Blur implements the §4.3.3 blur-heuristic stage: a four-vote ensemble
// over the grayscale image, rejecting on two or more blurry votes or on
// a motion-blur flag.
func Blur(ctx context.Context, data []byte, cfg Config) (verdict Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict, err = safeBlurFallback(data, cfg)
		}
	}()

	img, decodeErr := decode(data)
	if decodeErr != nil {
		return blurFallback(data, cfg)
	}

	gray := toGrayscaleBuffer(img, 1600, 1600)
	w, h := gray.w, gray.h

	votes := map[string]bool{}

	// 1. Sharpening response.
	_, sigma0 := meanStd(gray.px)
	sharpened := convolve3x3(gray, [3][3]float64{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	})
	_, sigma1 := meanStd(sharpened.px)
	var ratio float64
	if sigma0 > 0 {
		ratio = (sigma1 - sigma0) / sigma0
	}
	votes["sharpenResponse"] = ratio > cfg.BlurSharpenRatio

	// 2 & 3: Laplacian-derived local variance and edge histogram.
	laplacian := convolve3x3(gray, [3][3]float64{
		{-1, -1, -1},
		{-1, 8, -1},
		{-1, -1, -1},
	})

	blockSide := w / 20
	if h/20 < blockSide {
		blockSide = h / 20
	}
	if blockSide < 10 {
		blockSide = 10
	}

	lowVarianceBlocks, totalBlocks := 0, 0
	for by := 0; by < h; by += blockSide {
		for bx := 0; bx < w; bx += blockSide {
			var block []float64
			for y := by; y < by+blockSide && y < h; y++ {
				for x := bx; x < bx+blockSide && x < w; x++ {
					block = append(block, laplacian.at(x, y))
				}
			}
			if len(block) == 0 {
				continue
			}
			_, blockStd := meanStd(block)
			variance := blockStd * blockStd
			totalBlocks++
			if variance <= cfg.BlurBlockVarianceMin {
				lowVarianceBlocks++
			}
		}
	}
	var lowVarianceFraction float64
	if totalBlocks > 0 {
		lowVarianceFraction = float64(lowVarianceBlocks) / float64(totalBlocks)
	}
	votes["localVariance"] = (1 - lowVarianceFraction) < cfg.BlurBlockFraction

	strongEdges := 0
	for _, v := range laplacian.px {
		if v > cfg.BlurEdgeResponseMin {
			strongEdges++
		}
	}
	edgeFraction := float64(strongEdges) / float64(len(laplacian.px))
	votes["edgeHistogram"] = edgeFraction < cfg.BlurEdgeFraction

	// 4. Sobel gradient sums.
	sobelX := convolve3x3(gray, [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	})
	sobelY := convolve3x3(gray, [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	})
	var hSum, vSum float64
	for i := range sobelX.px {
		hSum += abs(sobelX.px[i])
		vSum += abs(sobelY.px[i])
	}
	threshold := 5 * float64(w) * float64(h)
	votes["gradientSum"] = hSum < threshold && vSum < threshold

	motionBlur := false
	minHV := math.Min(hSum, vSum)
	if minHV > 0 {
		maxHV := math.Max(hSum, vSum)
		if maxHV/minHV > cfg.BlurMotionRatio && minHV < threshold {
			motionBlur = true
		}
	}

	blurryVotes := 0
	for _, v := range votes {
		if v {
			blurryVotes++
		}
	}

	diagnostics := map[string]any{
		"votes":            votes,
		"blurryVoteCount":  blurryVotes,
		"motionBlur":       motionBlur,
		"sharpenRatio":     ratio,
		"edgeFraction":     edgeFraction,
		"horizontalSum":    hSum,
		"verticalSum":      vSum,
	}

	if blurryVotes >= 2 || motionBlur {
		return reject(records.CodeBlurryImageDetected,
			"Image is too blurry. Please upload a clearer photo.", diagnostics), nil
	}
	return accept(diagnostics), nil
}

// safeBlurFallback guards blurFallback with its own recover: the bytes
// that panicked the main ensemble can panic the fallback's decode/convolve
// path too, and the caller's recover has already fired by the time we get
// here, so a second panic would escape unrecovered.
func safeBlurFallback(data []byte, cfg Config) (verdict Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict, err = accept(map[string]any{"fallback": "fail-open"}), nil
		}
	}()
	return blurFallback(data, cfg)
}

// blurFallback is the single-sigma test used when the ensemble itself
// fails.
func blurFallback(data []byte, cfg Config) (Verdict, error) {
	img, err := decode(data)
	if err != nil {
		return Verdict{}, fmt.Errorf("blur: decode: %w", err)
	}

	gray := toGrayscaleBuffer(img, 1600, 1600)
	_, sigma := meanStd(gray.px)

	diagnostics := map[string]any{"fallback": "single-sigma", "sigma": sigma}
	if sigma < cfg.BlurFallbackSigma {
		return reject(records.CodeBlurryImageDetected,
			"Image is too blurry. Please upload a clearer photo.", diagnostics), nil
	}
	return accept(diagnostics), nil
}
