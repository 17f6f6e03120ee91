package analyzers

import (
	"context"
	"testing"

	"photoadmit/internal/records"
)

func TestBlurFlatImageIsRejected(t *testing.T) {
	cfg := Default()
	data := encodeFlatJPEG(1000, 1000, 128)

	verdict, err := Blur(context.Background(), data, cfg)
	if err != nil {
		t.Fatalf("Blur() error = %v", err)
	}
	if verdict.Accept {
		t.Errorf("Blur() should reject a uniform, featureless image as blurry")
	}
	if verdict.Code != records.CodeBlurryImageDetected {
		t.Errorf("Blur() code = %q, want %q", verdict.Code, records.CodeBlurryImageDetected)
	}
}

func TestBlurNoisyImageIsAccepted(t *testing.T) {
	cfg := Default()
	data := encodeJPEG(1000, 1000, 95)

	verdict, err := Blur(context.Background(), data, cfg)
	if err != nil {
		t.Fatalf("Blur() error = %v", err)
	}
	if !verdict.Accept {
		t.Errorf("Blur() should accept a high-entropy image, got reject: %s", verdict.Message)
	}
}
