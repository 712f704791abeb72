package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/jaki95/spotify-downloader/config"
)

// Storage places downloaded files and publishes finished ones.
type Storage interface {
	// CollectionDir creates and returns the local folder for a collection.
	CollectionDir(collection string) (string, error)

	// TrackBase returns the extensionless local path for a track file.
	TrackBase(collection, title, contributor string) (string, error)

	// Publish makes a finished local file available at its final location
	// and returns that location.
	Publish(ctx context.Context, localPath string) (string, error)

	GetReader(ctx context.Context, path string) (io.ReadCloser, error)

	FileExists(ctx context.Context, path string) bool

	ListFiles(ctx context.Context, dir string, pattern string) ([]string, error)

	OutputDir() string

	Close() error
}

// New creates the storage backend selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalFileStorage(cfg.OutputDir)
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket, cfg.ObjectPrefix, cfg.OutputDir, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
