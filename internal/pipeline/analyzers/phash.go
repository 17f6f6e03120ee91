package analyzers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"photoadmit/internal/records"
)

// ComputePHash implements §4.3.4 steps 1-4: a 32×32 average-hash
// perceptual fingerprint, summarised as a 32-hex-character MD5 digest.
func ComputePHash(data []byte) (string, error) {
	img, err := decode(data)
	if err != nil {
		return "", fmt.Errorf("phash: decode: %w", err)
	}

	gray := toFixedGrayscale32(img)

	var sum float64
	for _, v := range gray {
		sum += v
	}
	average := sum / float64(len(gray))

	bits := make([]byte, len(gray))
	for i, v := range gray {
		if v >= average {
			bits[i] = 1
		}
	}

	packed := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit == 1 {
			packed[i/8] |= 1 << uint(i%8)
		}
	}

	digest := md5.Sum(packed)
	return hex.EncodeToString(digest[:]), nil
}

// HammingDistanceHex returns the number of differing bits between two
// equal-length hex strings, each hex digit expanded to 4 binary
// characters.
func HammingDistanceHex(a, b string) int {
	if len(a) != len(b) {
		if len(a) > len(b) {
			return len(a) * 4
		}
		return len(b) * 4
	}

	distance := 0
	for i := 0; i < len(a); i++ {
		av := hexNibble(a[i])
		bv := hexNibble(b[i])
		distance += popcount4(av ^ bv)
	}
	return distance
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

func popcount4(b byte) int {
	count := 0
	for i := 0; i < 4; i++ {
		if b&(1<<uint(i)) != 0 {
			count++
		}
	}
	return count
}

// DuplicateCandidate is the narrow view PHashDuplicate checks against;
// the orchestrator builds one from each records.HashCandidate.
type DuplicateCandidate struct {
	ID           string
	OriginalName string
	PHash        string
}

// PHashDuplicate runs the §4.3.4 duplicate check: a fast filename-match
// path, then a Hamming-distance scan against every candidate. On error
// it fails open (no-duplicate) per the spec's explicit instruction never
// to surface a technical failure here as a user-facing rejection.
func PHashDuplicate(ctx context.Context, data []byte, originalName string, candidates []DuplicateCandidate, cfg Config) (Verdict, error) {
	hash, err := ComputePHash(data)
	if err != nil {
		return accept(map[string]any{"phashError": err.Error()}), nil
	}

	diagnostics := map[string]any{"pHash": hash}

	for _, candidate := range candidates {
		if strings.EqualFold(candidate.OriginalName, originalName) {
			diagnostics["similarTo"] = candidate.ID
			diagnostics["matchedBy"] = "filename"
			return reject(records.CodeDuplicateImageDetected,
				fmt.Sprintf("This image appears to be a duplicate of %q (id %s).", candidate.OriginalName, candidate.ID),
				diagnostics), nil
		}
	}

	for _, candidate := range candidates {
		if candidate.PHash == "" {
			continue
		}
		distance := HammingDistanceHex(hash, candidate.PHash)
		if distance <= cfg.PHashMaxHammingDistance {
			diagnostics["similarTo"] = candidate.ID
			diagnostics["matchedBy"] = "hash"
			diagnostics["hammingDistance"] = distance
			return reject(records.CodeDuplicateImageDetected,
				fmt.Sprintf("This image appears to be a duplicate of %q (id %s).", candidate.OriginalName, candidate.ID),
				diagnostics), nil
		}
	}

	return accept(diagnostics), nil
}

// toFixedGrayscale32 resizes src to exactly 32×32, stretching to fill
// (matching the spec's fit=fill requirement — aspect ratio is not
// preserved) and returns its grayscale intensities as a 1024-length
// float64 slice in row-major order.
func toFixedGrayscale32(src image.Image) []float64 {
	resized := imaging.Resize(src, 32, 32, imaging.Lanczos)
	gray := imaging.Grayscale(resized)

	out := make([]float64, 32*32)
	idx := 0
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := gray.At(x, y).RGBA()
			out[idx] = float64(r >> 8)
			idx++
		}
	}
	return out
}
