package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaki95/spotify-downloader/internal/domain"
)

// LocalFileStorage implements the Storage interface for the local filesystem
type LocalFileStorage struct {
	outputDir string
}

// NewLocalFileStorage creates a new local file storage rooted at outputDir
func NewLocalFileStorage(outputDir string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", outputDir, err)
	}
	return &LocalFileStorage{outputDir: outputDir}, nil
}

func (s *LocalFileStorage) OutputDir() string {
	return s.outputDir
}

// CollectionDir creates the folder for a collection's tracks
func (s *LocalFileStorage) CollectionDir(collection string) (string, error) {
	return collectionDir(s.outputDir, collection)
}

// TrackBase returns the path of a track without its extension
func (s *LocalFileStorage) TrackBase(collection, title, contributor string) (string, error) {
	dir, err := s.CollectionDir(collection)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, domain.TrackFileBase(title, contributor)), nil
}

// Publish is a no-op for local storage; files are already in place
func (s *LocalFileStorage) Publish(_ context.Context, localPath string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", localPath, err)
	}
	return localPath, nil
}

// GetReader returns a reader for the specified file
func (s *LocalFileStorage) GetReader(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// FileExists checks if a file exists
func (s *LocalFileStorage) FileExists(_ context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListFiles lists files in a directory matching a prefix
func (s *LocalFileStorage) ListFiles(_ context.Context, dir string, pattern string) ([]string, error) {
	if dir == "" {
		dir = s.outputDir
	}
	return listLocal(dir, pattern)
}

func (s *LocalFileStorage) Close() error {
	return nil
}

func collectionDir(root, collection string) (string, error) {
	if strings.TrimSpace(collection) == "" {
		collection = domain.SinglesFolder
	}
	dir := filepath.Join(root, domain.SanitizeFilename(collection))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return dir, nil
}

func listLocal(dir, pattern string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var results []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		// Match pattern (simple prefix for now)
		if pattern != "" && !strings.HasPrefix(file.Name(), pattern) {
			continue
		}

		results = append(results, filepath.Join(dir, file.Name()))
	}

	return results, nil
}
