package analyzers

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"photoadmit/internal/records"
)

// Size implements the §4.3.1 size stage: decodes image metadata and
// rejects images below the configured minimum dimensions or byte count.
func Size(ctx context.Context, data []byte, cfg Config) (Verdict, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Verdict{}, fmt.Errorf("size: decode config: %w", err)
	}

	width, height := config.Width, config.Height
	byteLength := len(data)

	if width < cfg.MinWidth || height < cfg.MinHeight {
		msg := fmt.Sprintf(
			"Image resolution must be at least %dx%d pixels. Observed: %dx%d.",
			cfg.MinWidth, cfg.MinHeight, width, height,
		)
		return reject(records.CodeSizeValidationFailed, msg, map[string]any{
			"width": width, "height": height, "byteLength": byteLength,
		}), nil
	}

	if int64(byteLength) < cfg.MinSizeBytes {
		observedKB := float64(byteLength) / 1024
		minKB := float64(cfg.MinSizeBytes) / 1024
		msg := fmt.Sprintf(
			"Image file must be at least %.0fKB. Observed: %.1fKB.",
			minKB, observedKB,
		)
		return reject(records.CodeSizeValidationFailed, msg, map[string]any{
			"width": width, "height": height, "byteLength": byteLength,
		}), nil
	}

	return accept(map[string]any{
		"width": width, "height": height, "byteLength": byteLength,
	}), nil
}
