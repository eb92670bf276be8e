package storage

import (
	"strings"

	"github.com/timmy/altseo/internal/config"
)

// NewStorage creates an ObjectStorage instance based on the configuration.
// Parameters:
//   - cfg: storage configuration (type, endpoint, credentials, bucket, local root).
// Returns:
//   - ObjectStorage: initialized storage implementation.
//   - error: non-nil if the storage cannot be created.
func NewStorage(cfg *config.StorageConfig) (ObjectStorage, error) {
	storageType := StorageType(strings.ToLower(cfg.Type))
	// Auto-detect storage type if not specified
	if storageType == "" {
		storageType = detectStorageType(cfg.Endpoint)
	}

	if storageType == StorageTypeLocal {
		return NewLocalStorage(cfg.LocalRoot, cfg.PublicURL)
	}

	return NewS3Storage(&S3Config{
		Type:      storageType,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	})
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "":
		return StorageTypeLocal
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
