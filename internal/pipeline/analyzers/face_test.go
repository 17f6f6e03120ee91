package analyzers

import (
	"context"
	"testing"

	"photoadmit/internal/records"
)

func TestFaceHighResAspectShortCircuit(t *testing.T) {
	cfg := Default()
	// Scale the high-resolution thresholds down so the test fixture stays
	// small, without changing the short-circuit's aspect-ratio logic.
	cfg.FaceHighResWidth = 100
	cfg.FaceHighResHeight = 80

	data := encodeJPEG(220, 100, 90) // aspect 2.2 > 2.0, width 220 > 100

	verdict, err := Face(context.Background(), data, cfg)
	if err != nil {
		t.Fatalf("Face() error = %v", err)
	}
	if verdict.Accept {
		t.Errorf("Face() should reject a wide, high-resolution image via the short-circuit")
	}
	if verdict.Code != records.CodeMultipleFacesDetected {
		t.Errorf("Face() code = %q, want %q", verdict.Code, records.CodeMultipleFacesDetected)
	}
	if verdict.Diagnostics["estimatedFaces"] != 2 {
		t.Errorf("Face() estimatedFaces = %v, want 2", verdict.Diagnostics["estimatedFaces"])
	}
}

func TestFaceSmallFlatImageAccepted(t *testing.T) {
	cfg := Default()
	data := encodeFlatJPEG(640, 480, 128)

	verdict, err := Face(context.Background(), data, cfg)
	if err != nil {
		t.Fatalf("Face() error = %v", err)
	}
	if !verdict.Accept {
		t.Errorf("Face() should accept a flat, featureless image: %s", verdict.Message)
	}
}

func TestGuardedFacePortraitOverride(t *testing.T) {
	cfg := Default()
	cfg.FaceHighResWidth = 100
	cfg.FaceHighResHeight = 80
	cfg.FacePortraitMaxDim = 10000 // force the aspect override to apply

	// A portrait-oriented (taller-than-wide) image. The wide-image
	// short-circuit does not apply to it (aspect below 2.0); the override
	// must accept it whatever Face itself decides.
	data := encodeJPEG(600, 900, 90)

	verdict := GuardedFace(context.Background(), data, cfg)
	if !verdict.Accept {
		t.Errorf("GuardedFace() should accept a portrait-oriented image via the override")
	}
}
