package downloader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNoMediaFiles = errors.New("no media files found")
	ErrFileEmpty    = errors.New("file is empty")
)

var sidecarExtensions = map[string]bool{
	".srt":  true,
	".vtt":  true,
	".part": true,
	".ytdl": true,
	".json": true,
	".jpg":  true,
	".webp": true,
	".png":  true,
}

// FindOutput returns the most recently written media file named
// base.<ext> in base's directory. Subtitles and partial files are ignored.
func FindOutput(base string) (string, error) {
	dir := filepath.Dir(base)
	prefix := filepath.Base(base) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("error scanning output directory: %w", err)
	}

	var mostRecentFile string
	var mostRecentTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if sidecarExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		// Names like "base.en.srt" carry an inner language code; only
		// "base.<ext>" is a media output.
		if strings.Contains(strings.TrimPrefix(entry.Name(), prefix), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(mostRecentTime) || mostRecentFile == "" {
			mostRecentTime = info.ModTime()
			mostRecentFile = filepath.Join(dir, entry.Name())
		}
	}

	if mostRecentFile == "" {
		return "", fmt.Errorf("%w: for %s", ErrNoMediaFiles, base)
	}
	return mostRecentFile, nil
}

// ValidateMediaFile checks that path exists, is non-empty and does not look
// like an error page. It returns the file size.
func ValidateMediaFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrFileEmpty, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file for validation: %w", err)
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read file header: %w", err)
	}
	header := buffer[:n]

	if len(header) >= 8 && string(header[4:8]) == "ftyp" {
		return info.Size(), nil // M4A/MP4
	}

	checkLen := min(len(header), 100)
	headerStr := strings.ToLower(string(header[:checkLen]))
	if strings.Contains(headerStr, "<html") || strings.Contains(headerStr, "<!doctype") {
		return 0, fmt.Errorf("downloaded file appears to be HTML, not media: %s", path)
	}

	headerLen := min(len(header), 16)
	slog.Warn("Could not verify media file format, proceeding anyway", "path", path, "header", fmt.Sprintf("%x", header[:headerLen]))
	return info.Size(), nil
}
