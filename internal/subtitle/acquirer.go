package subtitle

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/downloader"
	"github.com/samber/lo"
)

// Backend is the part of the downloader the acquirer needs.
type Backend interface {
	Probe(ctx context.Context, url string) (*downloader.MediaInfo, error)
	Download(ctx context.Context, url string, opts downloader.Options, progress downloader.ProgressCallback) (*downloader.Result, error)
}

// Acquirer makes the authoritative subtitle attempt for a fetched track.
type Acquirer struct {
	backend Backend
}

func NewAcquirer(backend Backend) *Acquirer {
	return &Acquirer{backend: backend}
}

// Acquire downloads subtitles for ref next to destBase and leaves them at
// destBase + ".srt". It reports whether that file exists afterwards.
func (a *Acquirer) Acquire(ctx context.Context, ref *domain.MediaRef, destBase, lang string, allowAuto bool) bool {
	if lang == "" {
		lang = "en"
	}

	if info, err := a.backend.Probe(ctx, ref.URL); err != nil {
		slog.Debug("Subtitle probe failed", "url", ref.URL, "error", err)
	} else {
		slog.Info("Subtitle availability", "url", ref.URL, "lang", lang,
			"has_manual", info.HasManual(lang), "has_auto", info.HasAutomatic(lang))
	}

	_, err := a.backend.Download(ctx, ref.URL, downloader.Options{
		OutputTemplate: destBase,
		Subtitles:      true,
		AutoSubtitles:  allowAuto,
		SubtitleLangs:  []string{lang},
		SkipMedia:      true,
	}, nil)
	if err != nil {
		slog.Warn("Subtitle download failed", "url", ref.URL, "error", err)
	}

	target := destBase + ".srt"
	for _, candidate := range Candidates(destBase, lang) {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := promote(candidate, target); err != nil {
			slog.Warn("Failed to move subtitle file", "from", candidate, "to", target, "error", err)
			continue
		}
		slog.Info("Subtitles saved", "path", target)
		return true
	}

	slog.Info("No subtitles found", "url", ref.URL, "lang", lang, "error", domain.ErrSubtitleMiss)
	return false
}

// Candidates lists the paths the downloader may have written subtitles to,
// in preference order.
func Candidates(destBase, lang string) []string {
	codes := lo.Uniq([]string{lang, lang + "-orig", "en", "en-US"})
	var candidates []string
	for _, ext := range []string{".srt", ".vtt"} {
		for _, code := range codes {
			candidates = append(candidates, destBase+"."+code+ext)
		}
		candidates = append(candidates, destBase+ext)
	}
	return candidates
}

// promote moves a subtitle file to target, converting WebVTT to SRT.
func promote(from, target string) error {
	if from == target {
		return nil
	}
	if strings.EqualFold(filepath.Ext(from), ".vtt") {
		cues := ParseFile(from)
		if err := os.WriteFile(target, []byte(Serialize(cues)), 0644); err != nil {
			return err
		}
		return os.Remove(from)
	}
	return os.Rename(from, target)
}

var siblingExtensions = []string{".srt", ".en.srt", ".vtt", ".en.vtt"}

// Pick chooses the subtitle file for mediaPath out of a listing of its
// directory.
func Pick(mediaPath string, files []string) (string, bool) {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	for _, ext := range siblingExtensions {
		if lo.Contains(files, base+ext) {
			return base + ext, true
		}
	}
	return "", false
}
