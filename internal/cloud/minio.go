package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/config"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
)

// MinIOArtifactStore keeps model bundles in a self-hosted S3-compatible bucket.
type MinIOArtifactStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOArtifactStore connects and creates the bucket when it is missing.
func NewMinIOArtifactStore(ctx context.Context, cfg config.MinIO) (*MinIOArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinIOArtifactStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinIOArtifactStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isMinIONotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("minio stat object: %w", err)
}

func (s *MinIOArtifactStore) Read(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object: %w", err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	if isMinIONotFound(err) {
		return nil, fmt.Errorf("minio %s/%s: %w", s.bucket, name, ml.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("minio read object: %w", err)
	}
	return data, nil
}

func (s *MinIOArtifactStore) Write(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("minio put object: %w", err)
	}
	return nil
}

func isMinIONotFound(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
