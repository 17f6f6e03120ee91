package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBackend stores blobs on the local filesystem under a root
// directory, serving the uploads/original and uploads/processed layout
// of §6. SignedURL has no native expiry here, so it returns a plain
// APP_URL-rooted URL regardless of the requested ttl.
type LocalBackend struct {
	root   string
	appURL string
}

// NewLocalBackend creates a filesystem-backed store rooted at root,
// publishing URLs under appURL (e.g. "http://localhost:8080").
func NewLocalBackend(root, appURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(filepath.Join(root, "uploads", "original"), 0o755); err != nil {
		return nil, fmt.Errorf("create original dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "uploads", "processed"), 0o755); err != nil {
		return nil, fmt.Errorf("create processed dir: %w", err)
	}
	return &LocalBackend{root: root, appURL: strings.TrimSuffix(appURL, "/")}, nil
}

var _ BlobStore = (*LocalBackend)(nil)

func (l *LocalBackend) absPath(key string) string {
	return filepath.Join(l.root, "uploads", filepath.FromSlash(key))
}

// Put writes data under uploads/<namespace>/<key> and returns the stored
// key (namespace/key), matching the convention the S3 backend uses for
// its object key.
func (l *LocalBackend) Put(ctx context.Context, namespace Namespace, key string, data []byte, contentType string) (string, error) {
	storedKey := string(namespace) + "/" + key
	path := l.absPath(storedKey)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return storedKey, nil
}

// Get reads the blob at key. Missing files are reported as ErrNotFound.
func (l *LocalBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.absPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Delete removes the blob at key. A missing file is not an error.
func (l *LocalBackend) Delete(ctx context.Context, key string) error {
	err := os.Remove(l.absPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SignedURL returns a direct, unbounded URL under appURL. The ttl
// parameter is accepted for interface parity but unused: local storage
// has no expiry mechanism.
func (l *LocalBackend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("%s/uploads/%s", l.appURL, key), nil
}
