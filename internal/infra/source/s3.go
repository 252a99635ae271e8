package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store reads documents from S3-compatible storage.
type S3Store struct {
	client *minio.Client
	logger *slog.Logger
}

// NewS3Store constructs the store. endpoint may carry a scheme, which then decides TLS.
func NewS3Store(endpoint, accessKey, secretKey, region string, useSSL bool, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lower := strings.ToLower(strings.TrimSpace(endpoint))
	switch {
	case strings.HasPrefix(lower, "https://"):
		useSSL = true
	case strings.HasPrefix(lower, "http://"):
		useSSL = false
	}
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, logger: logger.With("component", "source.s3")}, nil
}

// Get fetches an object for reading.
func (s *S3Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces missing objects before reading.
	info, statErr := obj.Stat()
	if statErr != nil {
		obj.Close()
		return nil, statErr
	}
	s.logger.Debug("s3 object opened", "bucket", bucket, "key", key, "size", info.Size, "content_type", info.ContentType)
	return obj, nil
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if host, _, found := strings.Cut(raw, "/"); found {
		raw = host
	}
	return raw
}
