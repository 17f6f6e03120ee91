package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config configures an S3-compatible backend. Endpoint is optional and
// lets the same code target R2, MinIO, or real AWS S3.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// S3Backend stores blobs in an S3-compatible bucket, generalized from the
// teacher's R2Client into the BlobStore contract.
type S3Backend struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Backend builds an S3Backend from cfg.
func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("missing S3 configuration")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &S3Backend{
		client:    s3.New(opts),
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
	}, nil
}

var _ BlobStore = (*S3Backend)(nil)

// Put uploads data under <namespace>/<key> and returns the stored key.
func (s *S3Backend) Put(ctx context.Context, namespace Namespace, key string, data []byte, contentType string) (string, error) {
	storedKey := string(namespace) + "/" + key

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(storedKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object: %v", ErrUnavailable, err)
	}
	return storedKey, nil
}

// Get retrieves the object at key.
func (s *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get object: %v", ErrUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read object body: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Delete removes the object at key. Missing objects are not an error.
func (s *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: delete object: %v", ErrUnavailable, err)
	}
	return nil
}

// SignedURL mints a presigned GET URL for key valid for ttl, using
// SignedURLTTL (one hour, §6's remote TTL) when ttl is not positive.
func (s *S3Backend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = SignedURLTTL
	}

	presignClient := s3.NewPresignClient(s.client)
	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: presign get object: %v", ErrUnavailable, err)
	}
	return request.URL, nil
}
