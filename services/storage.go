package services

import (
	"context"
	"errors"
	"fmt"

	"docconverter/config"
	"docconverter/models"
)

// ErrObjectNotFound is returned (wrapped) when a key does not exist in its bucket.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore moves files between local disk and object storage by bucket and key.
type ObjectStore interface {
	Download(ctx context.Context, ref models.BucketRef, localPath string) error
	Upload(ctx context.Context, localPath string, ref models.BucketRef, contentType string) error
}

// NewObjectStore builds the backend selected by STORAGE_BACKEND.
func NewObjectStore(cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		svc, err := NewS3Service(cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.StorageBackendMinio:
		svc, err := NewMinioService(cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}
