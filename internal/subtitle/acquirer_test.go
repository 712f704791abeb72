package subtitle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/downloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	writeSuffix string
	content     string
	probeErr    error
	downloadErr error
	gotOpts     downloader.Options
}

func (f *fakeBackend) Probe(context.Context, string) (*downloader.MediaInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &downloader.MediaInfo{ManualSubtitles: []string{"en"}}, nil
}

func (f *fakeBackend) Download(_ context.Context, _ string, opts downloader.Options, _ downloader.ProgressCallback) (*downloader.Result, error) {
	f.gotOpts = opts
	if f.writeSuffix != "" {
		if err := os.WriteFile(opts.OutputTemplate+f.writeSuffix, []byte(f.content), 0644); err != nil {
			return nil, err
		}
	}
	return &downloader.Result{}, f.downloadErr
}

var testRef = &domain.MediaRef{ID: "abc", URL: "https://www.youtube.com/watch?v=abc"}

func TestAcquire(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		want    bool
	}{
		{
			name:    "language coded srt",
			backend: &fakeBackend{writeSuffix: ".en.srt", content: srtSample},
			want:    true,
		},
		{
			name:    "original language auto captions",
			backend: &fakeBackend{writeSuffix: ".en-orig.srt", content: srtSample},
			want:    true,
		},
		{
			name:    "vtt converted",
			backend: &fakeBackend{writeSuffix: ".en.vtt", content: vttSample},
			want:    true,
		},
		{
			name:    "nothing written",
			backend: &fakeBackend{},
			want:    false,
		},
		{
			name:    "download error is not fatal",
			backend: &fakeBackend{downloadErr: errors.New("no subtitles"), probeErr: errors.New("offline")},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			destBase := filepath.Join(t.TempDir(), "Song - Artist")

			got := NewAcquirer(tt.backend).Acquire(context.Background(), testRef, destBase, "en", true)
			assert.Equal(t, tt.want, got)
			assert.True(t, tt.backend.gotOpts.SkipMedia)
			assert.True(t, tt.backend.gotOpts.AutoSubtitles)
			assert.Equal(t, []string{"en"}, tt.backend.gotOpts.SubtitleLangs)

			_, err := os.Stat(destBase + ".srt")
			assert.Equal(t, tt.want, err == nil)
			if tt.want {
				assert.Len(t, ParseFile(destBase+".srt"), 2)
			}
		})
	}
}

func TestAcquireKeepsExistingTarget(t *testing.T) {
	destBase := filepath.Join(t.TempDir(), "Song - Artist")
	require.NoError(t, os.WriteFile(destBase+".srt", []byte(srtSample), 0644))

	ok := NewAcquirer(&fakeBackend{}).Acquire(context.Background(), testRef, destBase, "en", false)
	assert.True(t, ok)
}

func TestCandidates(t *testing.T) {
	candidates := Candidates("/x/base", "de")
	assert.Equal(t, "/x/base.de.srt", candidates[0])
	assert.Contains(t, candidates, "/x/base.en.srt")
	assert.Contains(t, candidates, "/x/base.en-US.vtt")
	assert.Contains(t, candidates, "/x/base.srt")

	en := Candidates("/x/base", "en")
	assert.Len(t, en, 2*(3+1), "duplicate codes are collapsed")
}

func TestPick(t *testing.T) {
	dir := "/out/Album"
	media := filepath.Join(dir, "Song - Artist.m4a")

	_, ok := Pick(media, nil)
	assert.False(t, ok)

	listing := []string{
		filepath.Join(dir, "Song - Artist.m4a"),
		filepath.Join(dir, "Song - Artist.en.vtt"),
		filepath.Join(dir, "Song - Artist (Live).srt"),
	}
	path, ok := Pick(media, listing)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Song - Artist.en.vtt"), path)

	listing = append(listing, filepath.Join(dir, "Song - Artist.srt"))
	path, ok = Pick(media, listing)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Song - Artist.srt"), path, "plain srt is preferred")
}

func TestPromoteShortVTT(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "Song - Artist.en.vtt")
	target := filepath.Join(dir, "Song - Artist.srt")
	require.NoError(t, os.WriteFile(from, []byte("WEBVTT\n\n00:01.000 --> 00:02.500\nHello\n"), 0644))

	require.NoError(t, promote(from, target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,500\nHello\n", string(data))
	assert.NoFileExists(t, from)
}
