package artwork

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zhaarey/go-mp4tag"
)

const maxImageSize = 20 << 20

// Tags are the descriptive atoms written alongside the cover.
type Tags struct {
	Title       string
	Artist      string
	Album       string
	ReleaseDate string
	TrackNumber int
	TrackTotal  int
	DiscNumber  int
	Explicit    bool
}

// Embedder writes cover art and basic tags into MP4 containers.
type Embedder struct {
	httpClient *http.Client
}

func NewEmbedder() *Embedder {
	return &Embedder{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// Embed fetches artworkURL and writes it as the cover of the file at
// mediaPath. Failures are logged and reported as false.
func (e *Embedder) Embed(ctx context.Context, mediaPath, artworkURL string, tags Tags) bool {
	if artworkURL == "" {
		slog.Debug("No artwork to embed", "path", mediaPath)
		return false
	}

	data, format, err := e.fetch(ctx, artworkURL)
	if err != nil {
		slog.Warn("Failed to fetch artwork", "url", artworkURL, "error", err)
		return false
	}

	if err := writeTags(mediaPath, data, format, tags); err != nil {
		slog.Warn("Failed to embed artwork", "path", mediaPath, "error", err)
		return false
	}

	slog.Info("Embedded artwork", "path", mediaPath, "bytes", len(data))
	return true
}

func (e *Embedder) fetch(ctx context.Context, url string) ([]byte, mp4tag.ImageType, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("artwork download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read artwork: %w", err)
	}
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("artwork is empty")
	}

	return data, imageType(resp.Header.Get("Content-Type"), data), nil
}

// imageType picks the cover format from the content type, falling back to
// the PNG signature.
func imageType(contentType string, data []byte) mp4tag.ImageType {
	switch {
	case strings.Contains(contentType, "png"):
		return mp4tag.ImageTypePNG
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return mp4tag.ImageTypeJPEG
	case len(data) >= 8 && string(data[1:4]) == "PNG":
		return mp4tag.ImageTypePNG
	default:
		return mp4tag.ImageTypeJPEG
	}
}

func writeTags(path string, data []byte, format mp4tag.ImageType, tags Tags) error {
	t := &mp4tag.MP4Tags{
		Title:       tags.Title,
		Artist:      tags.Artist,
		Album:       tags.Album,
		AlbumArtist: tags.Artist,
		Date:        tags.ReleaseDate,
		TrackNumber: int16(tags.TrackNumber),
		TrackTotal:  int16(tags.TrackTotal),
		DiscNumber:  int16(tags.DiscNumber),
		Pictures: []*mp4tag.MP4Picture{
			{Format: format, Data: data},
		},
	}
	if tags.Explicit {
		t.ItunesAdvisory = mp4tag.ItunesAdvisoryExplicit
	} else {
		t.ItunesAdvisory = mp4tag.ItunesAdvisoryNone
	}

	mp4, err := mp4tag.Open(path)
	if err != nil {
		return err
	}
	defer mp4.Close()

	return mp4.Write(t, []string{})
}
