package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/downloader"
	"github.com/jaki95/spotify-downloader/internal/progress"
)

const maxOutputLength = 2000

// FetchError carries the downloader output of a failed fetch.
type FetchError struct {
	URL     string
	Output  string
	wrapped error
}

func (e *FetchError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("fetch of %s failed: %s", e.URL, e.wrapped)
	}
	return fmt.Sprintf("fetch of %s failed: %s\nOutput: %s", e.URL, e.wrapped, e.Output)
}

func (e *FetchError) Unwrap() []error {
	return []error{domain.ErrFetch, e.wrapped}
}

// newFetchError creates a FetchError with truncated downloader output
func newFetchError(url, output string, err error) error {
	if len(output) > maxOutputLength {
		output = "..." + output[len(output)-maxOutputLength:]
	}
	return &FetchError{URL: url, Output: output, wrapped: err}
}

// MediaDownloader is the part of the downloader the fetcher needs.
type MediaDownloader interface {
	Download(ctx context.Context, url string, opts downloader.Options, progress downloader.ProgressCallback) (*downloader.Result, error)
}

// ProgressFunc receives a clamped percentage in [0, 100].
type ProgressFunc func(percent float64)

type Fetcher struct {
	downloader MediaDownloader
	media      config.MediaConfig
}

func New(d MediaDownloader, media config.MediaConfig) *Fetcher {
	return &Fetcher{downloader: d, media: media}
}

// Extension is the container the fetcher produces for format.
func (f *Fetcher) Extension(format domain.Format) string {
	if format.IsVideo() {
		return f.media.VideoFormat
	}
	return f.media.AudioFormat
}

// Options builds the downloader options for a format.
func (f *Fetcher) Options(destBase string, format domain.Format) downloader.Options {
	opts := downloader.Options{
		OutputTemplate: destBase,
		Subtitles:      true,
		AutoSubtitles:  true,
		SubtitleLangs:  []string{f.media.SubtitleLanguage},
	}

	if format.IsVideo() {
		h := f.media.MaxHeight
		ext := f.media.VideoFormat
		opts.Format = fmt.Sprintf("bestvideo[height<=%d][ext=%s]+bestaudio[ext=m4a]/best[height<=%d][ext=%s]", h, ext, h, ext)
		opts.MergeFormat = ext
		return opts
	}

	opts.Format = "bestaudio/best"
	opts.ExtractAudio = true
	opts.AudioFormat = f.media.AudioFormat
	opts.AudioQuality = f.media.AudioQuality
	return opts
}

// Fetch downloads ref to destBase plus the format's extension and returns
// the final path. Every failure is a *FetchError wrapping domain.ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, ref *domain.MediaRef, destBase string, format domain.Format, onProgress ProgressFunc) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destBase), 0755); err != nil {
		return "", newFetchError(ref.URL, "", fmt.Errorf("failed to create output directory: %w", err))
	}

	var callback downloader.ProgressCallback
	if onProgress != nil {
		callback = func(downloaded, total int64) {
			if total <= 0 {
				return
			}
			onProgress(progress.Clamp(float64(downloaded) / float64(total) * 100))
		}
	}

	slog.Info("Fetching media", "url", ref.URL, "format", format, "dest", destBase)

	result, err := f.downloader.Download(ctx, ref.URL, f.Options(destBase, format), callback)
	if err != nil {
		output := ""
		if result != nil {
			output = result.Output
		}
		return "", newFetchError(ref.URL, output, err)
	}

	path := destBase + "." + f.Extension(format)
	if _, err := os.Stat(path); err != nil {
		found, findErr := downloader.FindOutput(destBase)
		if findErr != nil {
			return "", newFetchError(ref.URL, result.Output, fmt.Errorf("expected output %s: %w", path, errors.Join(err, findErr)))
		}
		slog.Warn("Media written with unexpected extension", "expected", path, "found", found)
		path = found
	}

	size, err := downloader.ValidateMediaFile(path)
	if err != nil {
		return "", newFetchError(ref.URL, result.Output, err)
	}

	slog.Info("Fetched media", "path", path, "size", size)
	return path, nil
}
