package analyzers

import (
	"os"
	"strconv"
)

// Config carries every numeric threshold used by the analyzer stages.
// All of them are first-class configuration (§9 "Analyzer tunables"), so
// an operator can retune sensitivity without a rebuild.
type Config struct {
	// Size stage
	MinWidth      int
	MinHeight     int
	MinSizeBytes  int64

	// Face-heuristic stage
	FaceHighResWidth       int
	FaceHighResHeight      int
	FaceHighResAspect      float64
	FaceHighResMegapixels  float64
	FaceComplexSceneSigma  float64
	FaceGridCells          int
	FaceFeatureDeltaFactor float64
	FaceFeatureConfidence  float64
	FaceClusterDistance    float64
	FaceStretchedAspect    float64
	FaceManyFeatures       int
	FaceSomeFeatures       int
	FaceLandscapeAspect    float64
	FaceLandscapeMinWidth  int
	FacePortraitMaxDim     int
	FacePortraitColorSigma float64

	// Blur-heuristic stage
	BlurSharpenRatio     float64
	BlurBlockVarianceMin float64
	BlurBlockFraction    float64
	BlurEdgeResponseMin  float64
	BlurEdgeFraction     float64
	BlurMotionRatio      float64
	BlurFallbackSigma    float64

	// Perceptual hash stage
	PHashMaxHammingDistance int
}

// Default returns the spec's stated default thresholds (§4.3).
func Default() Config {
	return Config{
		MinWidth:     800,
		MinHeight:    800,
		MinSizeBytes: 100 * 1024,

		FaceHighResWidth:       5000,
		FaceHighResHeight:      4000,
		FaceHighResAspect:      2.0,
		FaceHighResMegapixels:  12_000_000,
		FaceComplexSceneSigma:  90,
		FaceGridCells:          20,
		FaceFeatureDeltaFactor: 0.45,
		FaceFeatureConfidence:  0.65,
		FaceClusterDistance:    60,
		FaceStretchedAspect:    2.5,
		FaceManyFeatures:       20,
		FaceSomeFeatures:       12,
		FaceLandscapeAspect:    1.8,
		FaceLandscapeMinWidth:  1500,
		FacePortraitMaxDim:     1200,
		FacePortraitColorSigma: 60,

		BlurSharpenRatio:     0.2,
		BlurBlockVarianceMin: 100,
		BlurBlockFraction:    0.15,
		BlurEdgeResponseMin:  50,
		BlurEdgeFraction:     0.03,
		BlurMotionRatio:      3.0,
		BlurFallbackSigma:    25,

		PHashMaxHammingDistance: 3,
	}
}

// LoadFromEnv returns Default() with any PHOTOADMIT_MIN_*,
// PHOTOADMIT_FACE_*, PHOTOADMIT_BLUR_* or PHOTOADMIT_PHASH_* override
// applied from the environment.
func LoadFromEnv() Config {
	cfg := Default()

	cfg.MinWidth = envInt("PHOTOADMIT_MIN_WIDTH", cfg.MinWidth)
	cfg.MinHeight = envInt("PHOTOADMIT_MIN_HEIGHT", cfg.MinHeight)
	cfg.MinSizeBytes = envInt64("PHOTOADMIT_MIN_SIZE_BYTES", cfg.MinSizeBytes)

	cfg.FaceHighResWidth = envInt("PHOTOADMIT_FACE_HIGHRES_WIDTH", cfg.FaceHighResWidth)
	cfg.FaceHighResHeight = envInt("PHOTOADMIT_FACE_HIGHRES_HEIGHT", cfg.FaceHighResHeight)
	cfg.FaceHighResAspect = envFloat("PHOTOADMIT_FACE_HIGHRES_ASPECT", cfg.FaceHighResAspect)
	cfg.FaceHighResMegapixels = envFloat("PHOTOADMIT_FACE_HIGHRES_MEGAPIXELS", cfg.FaceHighResMegapixels)
	cfg.FaceComplexSceneSigma = envFloat("PHOTOADMIT_FACE_COMPLEX_SCENE_SIGMA", cfg.FaceComplexSceneSigma)
	cfg.FaceGridCells = envInt("PHOTOADMIT_FACE_GRID_CELLS", cfg.FaceGridCells)
	cfg.FaceFeatureDeltaFactor = envFloat("PHOTOADMIT_FACE_FEATURE_DELTA_FACTOR", cfg.FaceFeatureDeltaFactor)
	cfg.FaceFeatureConfidence = envFloat("PHOTOADMIT_FACE_FEATURE_CONFIDENCE", cfg.FaceFeatureConfidence)
	cfg.FaceClusterDistance = envFloat("PHOTOADMIT_FACE_CLUSTER_DISTANCE", cfg.FaceClusterDistance)
	cfg.FaceStretchedAspect = envFloat("PHOTOADMIT_FACE_STRETCHED_ASPECT", cfg.FaceStretchedAspect)
	cfg.FaceManyFeatures = envInt("PHOTOADMIT_FACE_MANY_FEATURES", cfg.FaceManyFeatures)
	cfg.FaceSomeFeatures = envInt("PHOTOADMIT_FACE_SOME_FEATURES", cfg.FaceSomeFeatures)
	cfg.FaceLandscapeAspect = envFloat("PHOTOADMIT_FACE_LANDSCAPE_ASPECT", cfg.FaceLandscapeAspect)
	cfg.FaceLandscapeMinWidth = envInt("PHOTOADMIT_FACE_LANDSCAPE_MIN_WIDTH", cfg.FaceLandscapeMinWidth)
	cfg.FacePortraitMaxDim = envInt("PHOTOADMIT_FACE_PORTRAIT_MAX_DIM", cfg.FacePortraitMaxDim)
	cfg.FacePortraitColorSigma = envFloat("PHOTOADMIT_FACE_PORTRAIT_COLOR_SIGMA", cfg.FacePortraitColorSigma)

	cfg.BlurSharpenRatio = envFloat("PHOTOADMIT_BLUR_SHARPEN_RATIO", cfg.BlurSharpenRatio)
	cfg.BlurBlockVarianceMin = envFloat("PHOTOADMIT_BLUR_BLOCK_VARIANCE_MIN", cfg.BlurBlockVarianceMin)
	cfg.BlurBlockFraction = envFloat("PHOTOADMIT_BLUR_BLOCK_FRACTION", cfg.BlurBlockFraction)
	cfg.BlurEdgeResponseMin = envFloat("PHOTOADMIT_BLUR_EDGE_RESPONSE_MIN", cfg.BlurEdgeResponseMin)
	cfg.BlurEdgeFraction = envFloat("PHOTOADMIT_BLUR_EDGE_FRACTION", cfg.BlurEdgeFraction)
	cfg.BlurMotionRatio = envFloat("PHOTOADMIT_BLUR_MOTION_RATIO", cfg.BlurMotionRatio)
	cfg.BlurFallbackSigma = envFloat("PHOTOADMIT_BLUR_FALLBACK_SIGMA", cfg.BlurFallbackSigma)

	cfg.PHashMaxHammingDistance = envInt("PHOTOADMIT_PHASH_MAX_HAMMING_DISTANCE", cfg.PHashMaxHammingDistance)

	return cfg
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}
