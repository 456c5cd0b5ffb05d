package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aulahub/console/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BlobStore is the console's view of the platform's object storage.
type BlobStore interface {
	Upload(ctx context.Context, objectName, contentType string, data io.Reader, size int64) error
	DownloadURL(ctx context.Context, objectName string) (string, error)
	Remove(ctx context.Context, objectName string) error
}

type MinIOStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinIOStore(cfg *config.Config) (*MinIOStore, error) {
	minioClient, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, cfg.MinIO.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		err = minioClient.MakeBucket(ctx, cfg.MinIO.BucketName, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStore{
		client: minioClient,
		bucket: cfg.MinIO.BucketName,
		expiry: cfg.MinIO.URLExpiry,
	}, nil
}

func (s *MinIOStore) Upload(ctx context.Context, objectName, contentType string, data io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, data, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %q: %w", objectName, err)
	}
	return nil
}

func (s *MinIOStore) DownloadURL(ctx context.Context, objectName string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

func (s *MinIOStore) Remove(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove %q: %w", objectName, err)
	}
	return nil
}

// IsFatalUploadErr reports whether an upload failure is a configuration or
// authorization problem that makes the rest of a batch pointless: the caller
// must abort instead of retrying the next file.
func IsFatalUploadErr(err error) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "AccessDenied", "NoSuchBucket", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled":
			return true
		}
	}
	return false
}
