package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const uploadTimeout = 5 * time.Minute

// GCSStorage downloads into a local working folder and mirrors finished
// files into a Google Cloud Storage bucket.
type GCSStorage struct {
	client       *storage.Client
	bucket       string
	objectPrefix string
	outputDir    string
}

// NewGCSStorage creates a new GCSStorage instance
func NewGCSStorage(ctx context.Context, bucketName, objectPrefix, outputDir, credentialsFile string) (*GCSStorage, error) {
	var client *storage.Client
	var err error

	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		// Use application default credentials
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &GCSStorage{
		client:       client,
		bucket:       bucketName,
		objectPrefix: strings.Trim(objectPrefix, "/"),
		outputDir:    outputDir,
	}, nil
}

func (s *GCSStorage) OutputDir() string {
	return s.outputDir
}

func (s *GCSStorage) CollectionDir(collection string) (string, error) {
	return collectionDir(s.outputDir, collection)
}

func (s *GCSStorage) TrackBase(collection, title, contributor string) (string, error) {
	return (&LocalFileStorage{outputDir: s.outputDir}).TrackBase(collection, title, contributor)
}

// Publish uploads a local file and returns its gs:// location
func (s *GCSStorage) Publish(ctx context.Context, localPath string) (string, error) {
	rel, err := filepath.Rel(s.outputDir, localPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(localPath)
	}

	objectName, err := s.UploadFile(ctx, localPath, filepath.ToSlash(rel))
	if err != nil {
		return "", err
	}

	location := fmt.Sprintf("gs://%s/%s", s.bucket, objectName)
	slog.Info("Uploaded file to GCS", "path", localPath, "location", location)
	return location, nil
}

// UploadFile uploads a local file to GCS
func (s *GCSStorage) UploadFile(ctx context.Context, localPath, objectName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer f.Close()

	objectName = s.objectName(objectName)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	wc := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err = io.Copy(wc, f); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return objectName, nil
}

// GetReader opens a local working file, or a bucket object otherwise
func (s *GCSStorage) GetReader(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.isLocal(path) {
		return os.Open(path)
	}
	return s.client.Bucket(s.bucket).Object(s.objectName(path)).NewReader(ctx)
}

// FileExists checks the working folder or the bucket
func (s *GCSStorage) FileExists(ctx context.Context, path string) bool {
	if s.isLocal(path) {
		_, err := os.Stat(path)
		return err == nil
	}

	_, err := s.client.Bucket(s.bucket).Object(s.objectName(path)).Attrs(ctx)
	return err == nil
}

// ListFiles lists files in a local directory or under a bucket prefix
func (s *GCSStorage) ListFiles(ctx context.Context, dir string, pattern string) ([]string, error) {
	if dir == "" {
		dir = s.outputDir
	}
	if s.isLocal(dir) {
		return listLocal(dir, pattern)
	}

	prefix := s.objectName(dir)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var results []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}

		// Skip directories (objects ending with /)
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		if pattern != "" && !strings.HasPrefix(filepath.Base(attrs.Name), pattern) {
			continue
		}

		results = append(results, attrs.Name)
	}

	return results, nil
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) isLocal(path string) bool {
	return strings.HasPrefix(path, s.outputDir)
}

// objectName applies the configured prefix to a bucket-relative name. Names
// that already carry the prefix are left alone.
func (s *GCSStorage) objectName(name string) string {
	name = strings.TrimPrefix(strings.TrimPrefix(name, "gs://"+s.bucket), "/")
	if s.objectPrefix == "" || strings.HasPrefix(name, s.objectPrefix+"/") {
		return name
	}
	return s.objectPrefix + "/" + name
}
