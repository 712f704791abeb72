package catalog

import (
	"context"
	"errors"
)

var ErrUnexpectedStatus = errors.New("unexpected catalog response status")

// Client is the catalog API surface the resolver depends on. Page methods
// fetch the first page when next is empty and follow next otherwise.
type Client interface {
	Track(ctx context.Context, id string) (*Track, error)
	Album(ctx context.Context, id string) (*Album, error)
	Playlist(ctx context.Context, id string) (*Playlist, error)
	AlbumTracks(ctx context.Context, albumID, next string) (*Page[Track], error)
	PlaylistTracks(ctx context.Context, playlistID, next string) (*Page[PlaylistItem], error)
}

// Session hands out scoped access to a shared client.
type Session interface {
	Acquire() (release func())
}

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ExternalIDs struct {
	ISRC string `json:"isrc"`
}

type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

type AlbumRef struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	AlbumType   string   `json:"album_type"`
	ReleaseDate string   `json:"release_date"`
	TotalTracks int      `json:"total_tracks"`
	Images      []Image  `json:"images"`
	Artists     []Artist `json:"artists"`
}

type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URI          string       `json:"uri"`
	DurationMs   int          `json:"duration_ms"`
	Artists      []Artist     `json:"artists"`
	Album        *AlbumRef    `json:"album"`
	TrackNumber  int          `json:"track_number"`
	DiscNumber   int          `json:"disc_number"`
	Popularity   int          `json:"popularity"`
	Explicit     bool         `json:"explicit"`
	PreviewURL   string       `json:"preview_url"`
	ExternalIDs  ExternalIDs  `json:"external_ids"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

type Album struct {
	AlbumRef
	ExternalURLs ExternalURLs `json:"external_urls"`
}

type Playlist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Images       []Image      `json:"images"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// PlaylistItem wraps a playlist entry. Track is nil for removed or local
// items.
type PlaylistItem struct {
	Track *Track `json:"track"`
}

type Page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next"`
	Total int    `json:"total"`
}
