package services

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"docconverter/config"
	"docconverter/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioService is the ObjectStore for self-hosted S3-compatible servers.
type MinioService struct {
	client *minio.Client
}

func NewMinioService(cfg *config.Config) (*MinioService, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AWSS3AccessKey, cfg.AWSS3SecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.S3Region,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinioService{client: client}, nil
}

func (m *MinioService) Download(ctx context.Context, ref models.BucketRef, localPath string) error {
	if err := m.client.FGetObject(ctx, ref.Bucket, ref.Key, localPath, minio.GetObjectOptions{}); err != nil {
		os.Remove(localPath)
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s/%s: %w", ref.Bucket, ref.Key, ErrObjectNotFound)
		}
		return fmt.Errorf("failed to download %s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return nil
}

func (m *MinioService) Upload(ctx context.Context, localPath string, ref models.BucketRef, contentType string) error {
	_, err := m.client.FPutObject(ctx, ref.Bucket, ref.Key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to %s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return nil
}
