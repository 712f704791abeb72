package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jaki95/spotify-downloader/internal/domain"
)

// Reference is a classified catalog URL.
type Reference struct {
	Kind domain.CollectionKind
	ID   string
	URL  string
}

var kinds = []domain.CollectionKind{domain.KindTrack, domain.KindAlbum, domain.KindPlaylist}

// CleanURL extracts the last https URL from pasted text and drops anything
// after the first whitespace. Text without an https URL is only trimmed.
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	idx := strings.LastIndex(raw, "https://")
	if idx < 0 {
		return raw
	}
	fields := strings.Fields(raw[idx:])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Classify determines whether raw points at a track, album or playlist and
// extracts its id.
func Classify(raw string) (Reference, error) {
	cleaned := CleanURL(raw)
	if cleaned == "" {
		return Reference{}, fmt.Errorf("%w: empty url", domain.ErrInvalidReference)
	}

	if ref, ok := classifyURI(cleaned); ok {
		return ref, nil
	}
	if ref, ok := classifyOpenURL(cleaned); ok {
		return ref, nil
	}

	// Loose match for anything else that mentions a kind.
	for _, kind := range kinds {
		marker := string(kind) + "/"
		idx := strings.Index(cleaned, marker)
		if idx < 0 {
			continue
		}
		id := cleaned[idx+len(marker):]
		id, _, _ = strings.Cut(id, "?")
		id, _, _ = strings.Cut(id, "/")
		if id == "" {
			return Reference{}, fmt.Errorf("%w: missing %s id in %q", domain.ErrInvalidReference, kind, cleaned)
		}
		return Reference{Kind: kind, ID: id, URL: cleaned}, nil
	}

	return Reference{}, fmt.Errorf("%w: %q is not a track, album or playlist url", domain.ErrInvalidReference, cleaned)
}

// classifyURI handles spotify:{kind}:{id}.
func classifyURI(s string) (Reference, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] != "spotify" {
		return Reference{}, false
	}
	kind := domain.CollectionKind(parts[1])
	if !validKind(kind) || parts[2] == "" {
		return Reference{}, false
	}
	return Reference{Kind: kind, ID: parts[2], URL: s}, true
}

// classifyOpenURL handles https://open.spotify.com/[intl-xx/]{kind}/{id}.
func classifyOpenURL(s string) (Reference, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Host != "open.spotify.com" {
		return Reference{}, false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 {
		return Reference{}, false
	}
	kind := domain.CollectionKind(segments[0])
	if !validKind(kind) || segments[1] == "" {
		return Reference{}, false
	}
	return Reference{Kind: kind, ID: segments[1], URL: s}, true
}

func validKind(kind domain.CollectionKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
