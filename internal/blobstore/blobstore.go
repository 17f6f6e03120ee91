// Package blobstore defines the pluggable object-store contract (C2) the
// admission pipeline persists original uploads and canonical derivatives
// against.
package blobstore

import (
	"context"
	"errors"
	"time"
)

// Namespace separates originals from derivatives inside a single backend.
type Namespace string

const (
	NamespaceOriginal  Namespace = "original"
	NamespaceProcessed Namespace = "processed"
)

// ErrNotFound is returned by Get when the key is unknown.
var ErrNotFound = errors.New("blobstore: key not found")

// ErrUnavailable is returned when the backend itself could not be reached;
// callers should treat this as retryable.
var ErrUnavailable = errors.New("blobstore: backend unavailable")

// SignedURLTTL is the lifetime used for remote-backend signed URLs.
const SignedURLTTL = time.Hour

// BlobStore puts, gets, deletes and mints signed URLs for image bytes.
// Implementations must preserve byte-exact round-trip and must make Put
// idempotent by key and Delete idempotent on a missing key.
type BlobStore interface {
	Put(ctx context.Context, namespace Namespace, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
