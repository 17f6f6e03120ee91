package analyzers

import (
	"context"
	"testing"

	"photoadmit/internal/records"
)

func TestSize(t *testing.T) {
	cfg := Default()
	ctx := context.Background()

	t.Run("exactly at the minimum accepts", func(t *testing.T) {
		data := padTo(encodeJPEG(cfg.MinWidth, cfg.MinHeight, 95), int(cfg.MinSizeBytes))
		verdict, err := Size(ctx, data, cfg)
		if err != nil {
			t.Fatalf("Size() error = %v", err)
		}
		if !verdict.Accept {
			t.Errorf("Size() at exactly the minimum should accept, got reject: %s", verdict.Message)
		}
	})

	t.Run("one pixel short of the minimum rejects", func(t *testing.T) {
		data := padTo(encodeJPEG(cfg.MinWidth-1, cfg.MinHeight, 95), int(cfg.MinSizeBytes))
		verdict, err := Size(ctx, data, cfg)
		if err != nil {
			t.Fatalf("Size() error = %v", err)
		}
		if verdict.Accept {
			t.Errorf("Size() one pixel under the minimum width should reject")
		}
		if verdict.Code != records.CodeSizeValidationFailed {
			t.Errorf("Size() code = %q, want %q", verdict.Code, records.CodeSizeValidationFailed)
		}
	})

	t.Run("under the minimum byte count rejects", func(t *testing.T) {
		data := encodeFlatJPEG(cfg.MinWidth, cfg.MinHeight, 128)
		if int64(len(data)) >= cfg.MinSizeBytes {
			t.Fatalf("test fixture is not actually under the minimum byte count: %d bytes", len(data))
		}
		verdict, err := Size(ctx, data, cfg)
		if err != nil {
			t.Fatalf("Size() error = %v", err)
		}
		if verdict.Accept {
			t.Errorf("Size() under the minimum byte count should reject")
		}
	})
}
