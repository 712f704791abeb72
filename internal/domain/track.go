package domain

import (
	"strings"

	"github.com/samber/lo"
)

// Fallback values used when the catalog omits a field.
const (
	UnknownTrack  = "Unknown Track"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	SinglesFolder = "Singles"
)

// CollectionKind identifies what a catalog URL points at.
type CollectionKind string

const (
	KindTrack    CollectionKind = "track"
	KindAlbum    CollectionKind = "album"
	KindPlaylist CollectionKind = "playlist"
)

// Artwork is a single image reference with its pixel dimensions.
type Artwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// TrackDescriptor is one resolved catalog track with its collection
// metadata denormalized onto it.
type TrackDescriptor struct {
	ExternalID   string   `json:"external_id"`
	Title        string   `json:"title"`
	Contributors []string `json:"contributors"`
	DurationMs   int      `json:"duration_ms"`
	ExternalURI  string   `json:"external_uri,omitempty"`

	CollectionName   string `json:"collection_name,omitempty"`
	CollectionID     string `json:"collection_id,omitempty"`
	CollectionKind   string `json:"collection_kind,omitempty"`
	ReleaseDate      string `json:"release_date,omitempty"`
	CollectionTracks int    `json:"collection_tracks,omitempty"`

	TrackNumber int  `json:"track_number,omitempty"`
	DiscNumber  int  `json:"disc_number,omitempty"`
	Popularity  int  `json:"popularity,omitempty"`
	Explicit    bool `json:"explicit"`

	Permalink      string    `json:"permalink,omitempty"`
	PreviewURL     string    `json:"preview_url,omitempty"`
	ISRC           string    `json:"isrc,omitempty"`
	ContributorIDs []string  `json:"contributor_ids,omitempty"`
	Artwork        []Artwork `json:"artwork,omitempty"`
}

// Normalize fills the sentinel values for a descriptor whose title or
// contributors are missing.
func (t *TrackDescriptor) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		t.Title = UnknownTrack
	}
	t.Contributors = lo.Filter(t.Contributors, func(name string, _ int) bool {
		return strings.TrimSpace(name) != ""
	})
	if len(t.Contributors) == 0 {
		t.Contributors = []string{UnknownArtist}
	}
}

// PrimaryContributor returns the first contributor name.
func (t *TrackDescriptor) PrimaryContributor() string {
	if len(t.Contributors) == 0 {
		return UnknownArtist
	}
	return t.Contributors[0]
}

// ContributorLine joins all contributors the way they are stored and shown.
func (t *TrackDescriptor) ContributorLine() string {
	if len(t.Contributors) == 0 {
		return UnknownArtist
	}
	return strings.Join(t.Contributors, ", ")
}

// ArtworkURL returns the URL of the largest artwork, or "" if there is none.
func (t *TrackDescriptor) ArtworkURL() string {
	return LargestArtwork(t.Artwork)
}

// LargestArtwork picks the image with the biggest pixel area. Images without
// dimensions keep their catalog order.
func LargestArtwork(images []Artwork) string {
	if len(images) == 0 {
		return ""
	}
	best := images[0]
	for _, img := range images[1:] {
		if img.Width*img.Height > best.Width*best.Height {
			best = img
		}
	}
	return best.URL
}

// Metadata converts the descriptor's catalog-specific fields into the
// versioned structure stored alongside a persisted record.
func (t *TrackDescriptor) Metadata() TrackMetadata {
	return TrackMetadata{
		Version:          MetadataVersion,
		AlbumID:          t.CollectionID,
		AlbumType:        t.CollectionKind,
		ReleaseDate:      t.ReleaseDate,
		AlbumTotalTracks: t.CollectionTracks,
		TrackNumber:      t.TrackNumber,
		DiscNumber:       t.DiscNumber,
		Popularity:       t.Popularity,
		Explicit:         t.Explicit,
		ISRC:             t.ISRC,
		PreviewURL:       t.PreviewURL,
		Permalink:        t.Permalink,
		ContributorIDs:   t.ContributorIDs,
	}
}
