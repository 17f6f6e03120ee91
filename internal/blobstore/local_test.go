package blobstore

import (
	"context"
	"errors"
	"testing"
)

func TestLocalBackendRoundTrip(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocalBackend() error = %v", err)
	}

	ctx := context.Background()
	data := []byte("fake jpeg bytes")

	key, err := backend.Put(ctx, NamespaceOriginal, "abc123.jpg", data, "image/jpeg")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if key != "original/abc123.jpg" {
		t.Errorf("Put() key = %q, want %q", key, "original/abc123.jpg")
	}

	got, err := backend.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}

	url, err := backend.SignedURL(ctx, key, SignedURLTTL)
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}
	want := "http://localhost:8080/uploads/original/abc123.jpg"
	if url != want {
		t.Errorf("SignedURL() = %q, want %q", url, want)
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := backend.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Errorf("Delete() on missing key should be a no-op, got error = %v", err)
	}
}
