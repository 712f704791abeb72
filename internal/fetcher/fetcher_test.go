package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/downloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var m4aHeader = append([]byte{0, 0, 0, 0x20}, []byte("ftypM4A isom")...)

type fakeDownloader struct {
	gotURL   string
	gotOpts  downloader.Options
	writeExt string
	data     []byte
	progress [][2]int64
	err      error
	output   string
}

func (f *fakeDownloader) Download(_ context.Context, url string, opts downloader.Options, cb downloader.ProgressCallback) (*downloader.Result, error) {
	f.gotURL = url
	f.gotOpts = opts
	for _, p := range f.progress {
		if cb != nil {
			cb(p[0], p[1])
		}
	}
	if f.err != nil {
		return &downloader.Result{Output: f.output}, f.err
	}
	if f.writeExt != "" {
		if err := os.WriteFile(opts.OutputTemplate+"."+f.writeExt, f.data, 0644); err != nil {
			return nil, err
		}
	}
	return &downloader.Result{Output: f.output}, nil
}

func testMedia() config.MediaConfig {
	return config.MediaConfig{
		AudioFormat:      "m4a",
		AudioQuality:     "192K",
		VideoFormat:      "mp4",
		MaxHeight:        720,
		SubtitleLanguage: "en",
	}
}

var ref = &domain.MediaRef{ID: "abc", URL: "https://www.youtube.com/watch?v=abc"}

func TestFetchAudio(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Singles", "Song - Artist")
	dl := &fakeDownloader{
		writeExt: "m4a",
		data:     m4aHeader,
		progress: [][2]int64{{0, 0}, {50, 100}, {150, 100}},
	}

	var percents []float64
	path, err := New(dl, testMedia()).Fetch(context.Background(), ref, dest, domain.FormatAudio, func(p float64) {
		percents = append(percents, p)
	})

	require.NoError(t, err)
	assert.Equal(t, dest+".m4a", path)
	assert.Equal(t, ref.URL, dl.gotURL)
	assert.Equal(t, "bestaudio/best", dl.gotOpts.Format)
	assert.True(t, dl.gotOpts.ExtractAudio)
	assert.Equal(t, "m4a", dl.gotOpts.AudioFormat)
	assert.Equal(t, "192K", dl.gotOpts.AudioQuality)
	assert.True(t, dl.gotOpts.Subtitles)
	assert.True(t, dl.gotOpts.AutoSubtitles)
	assert.Equal(t, []string{"en"}, dl.gotOpts.SubtitleLangs)
	// unknown totals are skipped and overshoot is clamped
	assert.Equal(t, []float64{50, 100}, percents)
}

func TestFetchVideoOptions(t *testing.T) {
	opts := New(nil, testMedia()).Options("/tmp/x", domain.FormatVideo)
	assert.Equal(t, "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]", opts.Format)
	assert.Equal(t, "mp4", opts.MergeFormat)
	assert.False(t, opts.ExtractAudio)
}

func TestFetchFallsBackToProducedFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Song - Artist")
	dl := &fakeDownloader{writeExt: "mkv", data: []byte("matroska-ish-data")}

	path, err := New(dl, testMedia()).Fetch(context.Background(), ref, dest, domain.FormatVideo, nil)
	require.NoError(t, err)
	assert.Equal(t, dest+".mkv", path)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name string
		dl   *fakeDownloader
	}{
		{name: "downloader error", dl: &fakeDownloader{err: errors.New("exit status 1"), output: "ERROR: Video unavailable"}},
		{name: "no output", dl: &fakeDownloader{}},
		{name: "empty output", dl: &fakeDownloader{writeExt: "m4a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "Song - Artist")
			_, err := New(tt.dl, testMedia()).Fetch(context.Background(), ref, dest, domain.FormatAudio, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrFetch)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, ref.URL, fetchErr.URL)
			assert.Equal(t, tt.dl.output, fetchErr.Output)
		})
	}
}

func TestFetchErrorTruncatesOutput(t *testing.T) {
	long := make([]byte, maxOutputLength+100)
	for i := range long {
		long[i] = 'x'
	}
	err := newFetchError("u", string(long), errors.New("boom"))

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Len(t, fetchErr.Output, maxOutputLength+3)
	assert.Contains(t, err.Error(), "boom")
}
