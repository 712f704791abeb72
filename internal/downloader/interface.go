package downloader

import (
	"context"
)

// ProgressCallback receives byte counts as a transfer advances. total is
// zero while the size is unknown.
type ProgressCallback func(downloaded, total int64)

// SearchResult is one hit from a media platform search.
type SearchResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// MediaInfo is what a probe reports about a single video.
type MediaInfo struct {
	ID                string
	Title             string
	ManualSubtitles   []string
	AutomaticCaptions []string
}

// HasManual reports whether uploaded subtitles exist for lang.
func (m *MediaInfo) HasManual(lang string) bool {
	return containsLang(m.ManualSubtitles, lang)
}

// HasAutomatic reports whether generated captions exist for lang.
func (m *MediaInfo) HasAutomatic(lang string) bool {
	return containsLang(m.AutomaticCaptions, lang)
}

// Options selects what a download produces.
type Options struct {
	// OutputTemplate is the output path without extension.
	OutputTemplate string

	Format       string
	ExtractAudio bool
	AudioFormat  string
	AudioQuality string
	MergeFormat  string

	Subtitles     bool
	AutoSubtitles bool
	SubtitleLangs []string
	SkipMedia     bool
}

// Result describes a finished download.
type Result struct {
	Filename string
	Output   string
}

// Downloader is the media platform backend used by the locator, fetcher
// and subtitle acquirer.
type Downloader interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Probe(ctx context.Context, url string) (*MediaInfo, error)
	Download(ctx context.Context, url string, opts Options, progress ProgressCallback) (*Result, error)
}
