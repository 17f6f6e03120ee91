// Package storage selects and constructs the configured blobstore.BlobStore
// backend, generalized from the teacher's single-backend R2 client.
package storage

import (
	"fmt"

	"photoadmit/internal/blobstore"
	"photoadmit/internal/config"
)

// New builds the configured BlobStore backend from cfg. STORAGE_TYPE
// selects "local" (default) or "s3".
func New(cfg config.StorageConfig) (blobstore.BlobStore, error) {
	switch cfg.Type {
	case "", "local":
		return blobstore.NewLocalBackend(cfg.LocalRoot, cfg.AppURL)
	case "s3":
		return blobstore.NewS3Backend(blobstore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicURL:       cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown STORAGE_TYPE %q", cfg.Type)
	}
}
