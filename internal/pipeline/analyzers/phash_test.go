package analyzers

import (
	"context"
	"testing"
)

func TestComputePHashIdentity(t *testing.T) {
	data := encodeJPEG(640, 480, 90)

	h1, err := ComputePHash(data)
	if err != nil {
		t.Fatalf("ComputePHash() error = %v", err)
	}
	h2, err := ComputePHash(data)
	if err != nil {
		t.Fatalf("ComputePHash() error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("ComputePHash() is not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 32 {
		t.Errorf("ComputePHash() length = %d, want 32 hex characters", len(h1))
	}
}

func TestHammingDistanceHex(t *testing.T) {
	if d := HammingDistanceHex("00000000000000000000000000000000", "00000000000000000000000000000000"); d != 0 {
		t.Errorf("HammingDistanceHex() identical = %d, want 0", d)
	}
	if d := HammingDistanceHex("0", "f"); d != 4 {
		t.Errorf("HammingDistanceHex(0, f) = %d, want 4", d)
	}
	if d := HammingDistanceHex("abc", "ab"); d != 8 {
		t.Errorf("HammingDistanceHex() mismatched length = %d, want 8", d)
	}
}

func TestPHashDuplicateByFilename(t *testing.T) {
	cfg := Default()
	data := encodeJPEG(640, 480, 90)

	candidates := []DuplicateCandidate{
		{ID: "existing-id", OriginalName: "Vacation.JPG", PHash: ""},
	}

	verdict, err := PHashDuplicate(context.Background(), data, "vacation.jpg", candidates, cfg)
	if err != nil {
		t.Fatalf("PHashDuplicate() error = %v", err)
	}
	if verdict.Accept {
		t.Errorf("PHashDuplicate() should reject a case-insensitive filename match")
	}
	if verdict.Diagnostics["matchedBy"] != "filename" {
		t.Errorf("PHashDuplicate() matchedBy = %v, want %q", verdict.Diagnostics["matchedBy"], "filename")
	}
}

func TestPHashDuplicateByHash(t *testing.T) {
	cfg := Default()
	data := encodeJPEG(640, 480, 90)

	hash, err := ComputePHash(data)
	if err != nil {
		t.Fatalf("ComputePHash() error = %v", err)
	}

	candidates := []DuplicateCandidate{
		{ID: "existing-id", OriginalName: "other-name.jpg", PHash: hash},
	}

	verdict, err := PHashDuplicate(context.Background(), data, "new-name.jpg", candidates, cfg)
	if err != nil {
		t.Fatalf("PHashDuplicate() error = %v", err)
	}
	if verdict.Accept {
		t.Errorf("PHashDuplicate() should reject an identical pHash")
	}
	if verdict.Diagnostics["matchedBy"] != "hash" {
		t.Errorf("PHashDuplicate() matchedBy = %v, want %q", verdict.Diagnostics["matchedBy"], "hash")
	}
}

func TestPHashDuplicateNoMatch(t *testing.T) {
	cfg := Default()
	data := encodeJPEG(640, 480, 90)

	candidates := []DuplicateCandidate{
		{ID: "existing-id", OriginalName: "unrelated.jpg", PHash: "ffffffffffffffffffffffffffffffff"},
	}

	verdict, err := PHashDuplicate(context.Background(), data, "new-name.jpg", candidates, cfg)
	if err != nil {
		t.Fatalf("PHashDuplicate() error = %v", err)
	}
	if !verdict.Accept {
		t.Errorf("PHashDuplicate() should accept when no candidate matches")
	}
}
