// Package downloader wraps yt-dlp for searching, probing and downloading
// media platform content.
package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/lrstanley/go-ytdlp"
	"github.com/samber/lo"
)

const defaultProgressInterval = 500 * time.Millisecond

// YtDlp runs the yt-dlp executable through go-ytdlp.
type YtDlp struct {
	progressInterval time.Duration
}

var _ Downloader = (*YtDlp)(nil)

func NewYtDlp(cfg config.MediaConfig) *YtDlp {
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &YtDlp{progressInterval: interval}
}

// Install downloads a managed yt-dlp binary when none is available.
func Install(ctx context.Context) error {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	slog.Info("yt-dlp available", "executable", resolved.Executable)
	return nil
}

func (y *YtDlp) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 1
	}

	res, err := ytdlp.New().
		FlatPlaylist().
		DumpSingleJSON().
		NoWarnings().
		Run(ctx, fmt.Sprintf("ytsearch%d:%s", limit, query))
	if err != nil {
		return nil, fmt.Errorf("search for %q failed: %w%s", query, err, stderrSuffix(res))
	}

	return parseSearch([]byte(res.Stdout))
}

func (y *YtDlp) Probe(ctx context.Context, url string) (*MediaInfo, error) {
	res, err := ytdlp.New().
		SkipDownload().
		DumpSingleJSON().
		NoPlaylist().
		NoWarnings().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("probe of %s failed: %w%s", url, err, stderrSuffix(res))
	}

	return parseProbe([]byte(res.Stdout))
}

func (y *YtDlp) Download(ctx context.Context, url string, opts Options, progress ProgressCallback) (*Result, error) {
	dl := ytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		NoWarnings().
		Output(opts.OutputTemplate + ".%(ext)s")

	if opts.Format != "" {
		dl.Format(opts.Format)
	}
	if opts.ExtractAudio {
		dl.ExtractAudio()
		if opts.AudioFormat != "" {
			dl.AudioFormat(opts.AudioFormat)
		}
		if opts.AudioQuality != "" {
			dl.AudioQuality(opts.AudioQuality)
		}
	}
	if opts.MergeFormat != "" {
		dl.MergeOutputFormat(opts.MergeFormat)
	}
	if opts.Subtitles {
		dl.WriteSubs().ConvertSubs("srt")
		if len(opts.SubtitleLangs) > 0 {
			dl.SubLangs(strings.Join(opts.SubtitleLangs, ","))
		}
		if opts.AutoSubtitles {
			dl.WriteAutoSubs()
		}
	}
	if opts.SkipMedia {
		dl.SkipDownload()
	}

	if progress != nil {
		dl.ProgressFunc(y.progressInterval, func(update ytdlp.ProgressUpdate) {
			progress(int64(update.DownloadedBytes), int64(update.TotalBytes))
		})
	}

	slog.Debug("Running yt-dlp", "url", url, "output", opts.OutputTemplate, "skip_media", opts.SkipMedia)

	res, err := dl.Run(ctx, url)
	result := &Result{Output: combinedOutput(res)}
	if err != nil {
		return result, err
	}

	if info, err := res.GetExtractedInfo(); err == nil && len(info) > 0 && info[0].Filename != nil {
		result.Filename = *info[0].Filename
	}
	return result, nil
}

type searchEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type searchResponse struct {
	Entries []searchEntry `json:"entries"`
}

func parseSearch(data []byte) ([]SearchResult, error) {
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	return lo.FilterMap(resp.Entries, func(e searchEntry, _ int) (SearchResult, bool) {
		if e.ID == "" {
			return SearchResult{}, false
		}
		return SearchResult{ID: e.ID, Title: e.Title, URL: domain.WatchURL(e.ID)}, true
	}), nil
}

type probeResponse struct {
	ID                string                     `json:"id"`
	Title             string                     `json:"title"`
	Subtitles         map[string]json.RawMessage `json:"subtitles"`
	AutomaticCaptions map[string]json.RawMessage `json:"automatic_captions"`
}

func parseProbe(data []byte) (*MediaInfo, error) {
	var resp probeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode media info: %w", err)
	}

	return &MediaInfo{
		ID:                resp.ID,
		Title:             resp.Title,
		ManualSubtitles:   sortedKeys(resp.Subtitles),
		AutomaticCaptions: sortedKeys(resp.AutomaticCaptions),
	}, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func containsLang(langs []string, lang string) bool {
	return lo.ContainsBy(langs, func(l string) bool {
		return l == lang || strings.HasPrefix(l, lang+"-")
	})
}

func combinedOutput(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return strings.TrimSpace(res.Stdout + "\n" + res.Stderr)
}

func stderrSuffix(res *ytdlp.Result) string {
	if res == nil || strings.TrimSpace(res.Stderr) == "" {
		return ""
	}
	return ": " + strings.TrimSpace(res.Stderr)
}
