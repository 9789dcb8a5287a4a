// Package gcs implements a Google Cloud Storage blob store.
package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// BlobStore writes archived page bodies to a GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// New initializes a GCS client and verifies access to the bucket.
// Authentication uses Application Default Credentials.
func New(ctx context.Context, bucket string) (*BlobStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	// Fail fast on startup if the bucket is misconfigured.
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", bucket, err)
	}
	return &BlobStore{client: client, bucket: bucket}, nil
}

// PutObject uploads data and returns a gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("write gcs object %s: %w", path, err)
	}
	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close gcs writer for %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

// Close releases the underlying client.
func (s *BlobStore) Close() error {
	return s.client.Close()
}
