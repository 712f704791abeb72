package domain

import "fmt"

// Format selects what the fetcher produces for a track.
type Format string

const (
	FormatAudio Format = "audio"
	FormatVideo Format = "video"
)

// ParseFormat validates a user supplied format, defaulting to audio.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatAudio:
		return FormatAudio, nil
	case FormatVideo:
		return FormatVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// IsVideo reports whether the format produces a video container.
func (f Format) IsVideo() bool {
	return f == FormatVideo
}

// MediaRef points at a single item on the media platform.
type MediaRef struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Query string `json:"query,omitempty"`
}

// WatchURL builds the playback URL for a platform video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
