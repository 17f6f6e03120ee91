package analyzers

import (
	"context"
	"fmt"
	"math"

	"photoadmit/internal/records"
)

type featureCell struct {
	row, col   int
	confidence float64
}

// Face implements the §4.3.2 face-heuristic stage: a conservative,
// non-ML estimate of the number of human subjects, clamped to {0,1,2}.
func Face(ctx context.Context, data []byte, cfg Config) (verdict Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict, err = safeFaceFallback(data, cfg)
		}
	}()

	img, decodeErr := decode(data)
	if decodeErr != nil {
		return faceFallback(data, cfg)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	aspect := float64(width) / float64(height)

	diagnostics := map[string]any{"width": width, "height": height, "aspect": aspect}

	// Step 2: high-resolution short-circuit.
	if (width > cfg.FaceHighResWidth || height > cfg.FaceHighResHeight) && aspect > cfg.FaceHighResAspect {
		return faceVerdict(2, diagnostics, cfg)
	}
	totalPixels := float64(width) * float64(height)
	isPortraitAspect := aspect < 0.9
	if totalPixels > cfg.FaceHighResMegapixels && !isPortraitAspect {
		return faceVerdict(2, diagnostics, cfg)
	}

	// Step 3: downscale, grayscale, global stats.
	gray := toGrayscaleBuffer(img, 800, 800)
	_, sigma := meanStd(gray.px)
	diagnostics["globalSigma"] = sigma

	if sigma > cfg.FaceComplexSceneSigma && (gray.w > 800 || gray.h > 700) {
		return faceVerdict(2, diagnostics, cfg)
	}

	// Step 4: grid-cell feature extraction.
	cells := cfg.FaceGridCells
	cellW := gray.w / cells
	cellH := gray.h / cells
	if cellW < 1 {
		cellW = 1
	}
	if cellH < 1 {
		cellH = 1
	}

	cols := gray.w / cellW
	rows := gray.h / cellH
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	means := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		means[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			var sum float64
			count := 0
			for y := r * cellH; y < (r+1)*cellH && y < gray.h; y++ {
				for x := c * cellW; x < (c+1)*cellW && x < gray.w; x++ {
					sum += gray.at(x, y)
					count++
				}
			}
			if count > 0 {
				means[r][c] = sum / float64(count)
			}
		}
	}

	var allMeans []float64
	for r := range means {
		allMeans = append(allMeans, means[r]...)
	}
	_, crossCellSigma := meanStd(allMeans)

	var features []featureCell
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var maxDelta float64
			neighbors := [][2]int{{r - 1, c}, {r + 1, c}, {r, c - 1}, {r, c + 1}}
			for _, n := range neighbors {
				if n[0] < 0 || n[0] >= rows || n[1] < 0 || n[1] >= cols {
					continue
				}
				d := abs(means[r][c] - means[n[0]][n[1]])
				if d > maxDelta {
					maxDelta = d
				}
			}
			if crossCellSigma > 0 && maxDelta > cfg.FaceFeatureDeltaFactor*crossCellSigma {
				ratio := maxDelta / (cfg.FaceFeatureDeltaFactor * crossCellSigma)
				confidence := math.Min(ratio/2, 0.95)
				if confidence > cfg.FaceFeatureConfidence {
					features = append(features, featureCell{row: r, col: c, confidence: confidence})
				}
			}
		}
	}
	diagnostics["retainedFeatures"] = len(features)

	// Step 5: cluster features by proximity, in downscaled-pixel distance
	// rather than raw grid-index distance, since FaceClusterDistance is a
	// pixel threshold against the 800x800 buffer, not a cell-count one.
	clusters := clusterFeatures(features, cellW, cellH, cfg.FaceClusterDistance)
	estimate := len(clusters)

	// Step 6: post-hoc adjustments.
	for _, cluster := range clusters {
		if len(cluster) >= 10 {
			minR, maxR, minC, maxC := boundingBox(cluster)
			h := float64(maxR - minR + 1)
			w := float64(maxC - minC + 1)
			if h > 0 && w/h > cfg.FaceStretchedAspect {
				estimate = 2
			}
		}
	}
	if len(features) > cfg.FaceManyFeatures && estimate < 2 {
		estimate = 2
	}
	if len(features) > cfg.FaceSomeFeatures && estimate == 0 {
		estimate = 1
	}
	if estimate == 0 && aspect > cfg.FaceLandscapeAspect && width > cfg.FaceLandscapeMinWidth {
		estimate = 1
	}

	return faceVerdict(estimate, diagnostics, cfg)
}

func faceVerdict(estimate int, diagnostics map[string]any, cfg Config) (Verdict, error) {
	if estimate > 2 {
		estimate = 2
	}
	if estimate < 0 {
		estimate = 0
	}
	diagnostics["estimatedFaces"] = estimate

	if estimate > 1 {
		return reject(records.CodeMultipleFacesDetected,
			fmt.Sprintf("Multiple faces detected (estimated %d).", estimate), diagnostics), nil
	}
	return accept(diagnostics), nil
}

// safeFaceFallback guards faceFallback with its own recover: the bytes
// that panicked the main estimator can panic the fallback's decode/convolve
// path too, and the caller's recover has already fired by the time we get
// here, so a second panic would escape unrecovered.
func safeFaceFallback(data []byte, cfg Config) (verdict Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict, err = accept(map[string]any{"fallback": "fail-open"}), nil
		}
	}()
	return faceFallback(data, cfg)
}

// faceFallback is the §4.3.2 step 7 exception path: an edge-density pass,
// falling further back to fail-open (estimate = 1, Accept) if even that
// fails.
func faceFallback(data []byte, cfg Config) (Verdict, error) {
	img, err := decode(data)
	if err != nil {
		return accept(map[string]any{"fallback": "fail-open"}), nil
	}

	gray := toGrayscaleBuffer(img, 800, 800)
	laplacian := convolve3x3(gray, [3][3]float64{
		{-1, -1, -1},
		{-1, 8, -1},
		{-1, -1, -1},
	})

	strong := 0
	for _, v := range laplacian.px {
		if abs(v)/255 > 200.0/255 {
			strong++
		}
	}
	edgeDensity := float64(strong) / float64(len(laplacian.px))
	estimate := int(math.Round(math.Min(edgeDensity*40, 2)))

	diagnostics := map[string]any{"fallback": "edge-density", "edgeDensity": edgeDensity, "estimatedFaces": estimate}
	if estimate > 1 {
		return reject(records.CodeMultipleFacesDetected, "Multiple faces detected.", diagnostics), nil
	}
	return accept(diagnostics), nil
}

// GuardedFace wraps Face with the §4.3.2 portrait-override: a Reject
// verdict is re-examined and overridden to Accept when the image is
// taller than wide, when both sides are under FacePortraitMaxDim, or when
// its average per-channel color sigma is under FacePortraitColorSigma
// (solid-background portraits). An error from Face is turned into an
// Accept here, per §4.4 step 4, so GuardedFace returns only a Verdict and
// the face stage never aborts the pipeline.
func GuardedFace(ctx context.Context, data []byte, cfg Config) Verdict {
	verdict, err := Face(ctx, data, cfg)
	if err != nil {
		return accept(map[string]any{"faceStageError": err.Error()})
	}
	if verdict.Accept {
		return verdict
	}

	img, decodeErr := decode(data)
	if decodeErr != nil {
		return verdict
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if height > width || (width < cfg.FacePortraitMaxDim && height < cfg.FacePortraitMaxDim) {
		verdict.Accept = true
		verdict.Diagnostics["portraitOverride"] = "aspect"
		return verdict
	}

	if rgbColorStd(img) < cfg.FacePortraitColorSigma {
		verdict.Accept = true
		verdict.Diagnostics["portraitOverride"] = "colorSigma"
		return verdict
	}

	return verdict
}

// clusterFeatures groups retained feature cells by proximity, measured in
// downscaled-pixel distance (grid index scaled by the cell's pixel extent)
// rather than raw grid-index distance, so maxDistance is comparable across
// different FaceGridCells settings.
func clusterFeatures(features []featureCell, cellW, cellH int, maxDistance float64) [][]featureCell {
	var clusters [][]featureCell
	assigned := make([]bool, len(features))

	for i, f := range features {
		if assigned[i] {
			continue
		}
		cluster := []featureCell{f}
		assigned[i] = true

		for {
			grew := false
			for j, g := range features {
				if assigned[j] {
					continue
				}
				for _, member := range cluster {
					dr := float64(member.row-g.row) * float64(cellH)
					dc := float64(member.col-g.col) * float64(cellW)
					if math.Sqrt(dr*dr+dc*dc) <= maxDistance {
						cluster = append(cluster, g)
						assigned[j] = true
						grew = true
						break
					}
				}
			}
			if !grew {
				break
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

func boundingBox(cluster []featureCell) (minR, maxR, minC, maxC int) {
	minR, maxR = cluster[0].row, cluster[0].row
	minC, maxC = cluster[0].col, cluster[0].col
	for _, f := range cluster {
		if f.row < minR {
			minR = f.row
		}
		if f.row > maxR {
			maxR = f.row
		}
		if f.col < minC {
			minC = f.col
		}
		if f.col > maxC {
			maxC = f.col
		}
	}
	return
}
