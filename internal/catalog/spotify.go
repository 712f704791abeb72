package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyClient talks to the Spotify Web API with client-credentials auth.
// One instance is shared by every batch; the underlying API client is
// built on first use and rebuilt after Close.
type SpotifyClient struct {
	credentials clientcredentials.Config
	baseURL     string
	market      string
	pageSize    int

	mu        sync.Mutex
	api       *spotify.Client
	transport *http.Transport
	users     int
}

var _ Client = (*SpotifyClient)(nil)
var _ Session = (*SpotifyClient)(nil)

func NewSpotifyClient(cfg config.CatalogConfig) (*SpotifyClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET environment variables are required")
	}

	baseURL := ""
	if cfg.APIBaseURL != "" {
		baseURL = strings.TrimRight(cfg.APIBaseURL, "/") + "/"
	}

	return &SpotifyClient{
		credentials: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		},
		baseURL:  baseURL,
		market:   cfg.Market,
		pageSize: cfg.PageSize,
	}, nil
}

func (c *SpotifyClient) client() *spotify.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api == nil {
		c.transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		base := &http.Client{Transport: c.transport, Timeout: 30 * time.Second}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient := c.credentials.Client(ctx)
		httpClient.Timeout = 30 * time.Second

		var opts []spotify.ClientOption
		if c.baseURL != "" {
			opts = append(opts, spotify.WithBaseURL(c.baseURL))
		}
		c.api = spotify.New(httpClient, opts...)
		slog.Debug("Initialised catalog client")
	}
	return c.api
}

// Acquire registers a user of the shared client. The returned release runs
// at most once; the last release drops idle connections while keeping the
// client usable for later batches.
func (c *SpotifyClient) Acquire() func() {
	c.mu.Lock()
	c.users++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.users--
			if c.users == 0 && c.transport != nil {
				c.transport.CloseIdleConnections()
				slog.Debug("Released catalog session")
			}
		})
	}
}

// Close drops the API client. The next request builds a fresh one.
func (c *SpotifyClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	c.api = nil
	c.transport = nil
}

func (c *SpotifyClient) Track(ctx context.Context, id string) (*Track, error) {
	track, err := c.client().GetTrack(ctx, spotify.ID(id), c.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track %s: %w", id, apiError(err))
	}
	return fromFullTrack(track), nil
}

func (c *SpotifyClient) Album(ctx context.Context, id string) (*Album, error) {
	album, err := c.client().GetAlbum(ctx, spotify.ID(id), c.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch album %s: %w", id, apiError(err))
	}

	ref := fromSimpleAlbum(album.SimpleAlbum)
	ref.TotalTracks = int(album.Tracks.Total)
	return &Album{
		AlbumRef:     *ref,
		ExternalURLs: ExternalURLs{Spotify: album.ExternalURLs["spotify"]},
	}, nil
}

func (c *SpotifyClient) Playlist(ctx context.Context, id string) (*Playlist, error) {
	opts := append(c.options(), spotify.Fields("id,name,images,external_urls"))
	playlist, err := c.client().GetPlaylist(ctx, spotify.ID(id), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", id, apiError(err))
	}
	return &Playlist{
		ID:           string(playlist.ID),
		Name:         playlist.Name,
		Images:       fromImages(playlist.Images),
		ExternalURLs: ExternalURLs{Spotify: playlist.ExternalURLs["spotify"]},
	}, nil
}

// AlbumTracks fetches one page of an album. next is the offset cursor
// returned by the previous page.
func (c *SpotifyClient) AlbumTracks(ctx context.Context, albumID, next string) (*Page[Track], error) {
	offset, err := parseCursor(next)
	if err != nil {
		return nil, err
	}

	page, err := c.client().GetAlbumTracks(ctx, spotify.ID(albumID), c.pageOptions(offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch album tracks for %s: %w", albumID, apiError(err))
	}

	items := make([]Track, 0, len(page.Tracks))
	for i := range page.Tracks {
		items = append(items, *fromSimpleTrack(&page.Tracks[i]))
	}
	return &Page[Track]{
		Items: items,
		Next:  nextCursor(page.Next, offset, len(items)),
		Total: int(page.Total),
	}, nil
}

// PlaylistTracks fetches one page of a playlist. Episodes and removed
// tracks come back as items without a track.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID, next string) (*Page[PlaylistItem], error) {
	offset, err := parseCursor(next)
	if err != nil {
		return nil, err
	}

	page, err := c.client().GetPlaylistItems(ctx, spotify.ID(playlistID), c.pageOptions(offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist tracks for %s: %w", playlistID, apiError(err))
	}

	items := make([]PlaylistItem, 0, len(page.Items))
	for _, item := range page.Items {
		var track *Track
		if item.Track.Track != nil {
			track = fromFullTrack(item.Track.Track)
		}
		items = append(items, PlaylistItem{Track: track})
	}
	return &Page[PlaylistItem]{
		Items: items,
		Next:  nextCursor(page.Next, offset, len(items)),
		Total: int(page.Total),
	}, nil
}

func (c *SpotifyClient) options() []spotify.RequestOption {
	if c.market == "" {
		return nil
	}
	return []spotify.RequestOption{spotify.Market(c.market)}
}

func (c *SpotifyClient) pageOptions(offset int) []spotify.RequestOption {
	return append(c.options(), spotify.Limit(c.pageSize), spotify.Offset(offset))
}

func parseCursor(next string) (int, error) {
	if next == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(next)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid page cursor %q", next)
	}
	return offset, nil
}

func nextCursor(next string, offset, count int) string {
	if next == "" || count == 0 {
		return ""
	}
	return strconv.Itoa(offset + count)
}

// apiError folds the library's status errors into ErrUnexpectedStatus.
func apiError(err error) error {
	var value spotify.Error
	if errors.As(err, &value) {
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, value.Status, value.Message)
	}
	var ptr *spotify.Error
	if errors.As(err, &ptr) && ptr != nil {
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, ptr.Status, ptr.Message)
	}
	return err
}

func fromFullTrack(t *spotify.FullTrack) *Track {
	track := fromSimpleTrack(&t.SimpleTrack)
	track.Popularity = int(t.Popularity)

	wire := readWireFields(t)
	track.ExternalIDs = ExternalIDs{ISRC: wire.ExternalIDs.ISRC}

	album := fromSimpleAlbum(t.Album)
	album.TotalTracks = wire.Album.TotalTracks
	track.Album = album
	return track
}

func fromSimpleTrack(t *spotify.SimpleTrack) *Track {
	return &Track{
		ID:           string(t.ID),
		Name:         t.Name,
		URI:          string(t.URI),
		DurationMs:   int(t.Duration),
		Artists:      fromArtists(t.Artists),
		TrackNumber:  int(t.TrackNumber),
		DiscNumber:   int(t.DiscNumber),
		Explicit:     t.Explicit,
		PreviewURL:   t.PreviewURL,
		ExternalURLs: ExternalURLs{Spotify: t.ExternalURLs["spotify"]},
	}
}

func fromSimpleAlbum(a spotify.SimpleAlbum) *AlbumRef {
	return &AlbumRef{
		ID:          string(a.ID),
		Name:        a.Name,
		AlbumType:   a.AlbumType,
		ReleaseDate: a.ReleaseDate,
		Images:      fromImages(a.Images),
		Artists:     fromArtists(a.Artists),
	}
}

func fromArtists(artists []spotify.SimpleArtist) []Artist {
	out := make([]Artist, 0, len(artists))
	for _, a := range artists {
		out = append(out, Artist{ID: string(a.ID), Name: a.Name})
	}
	return out
}

func fromImages(images []spotify.Image) []Image {
	out := make([]Image, 0, len(images))
	for _, img := range images {
		out = append(out, Image{URL: img.URL, Width: int(img.Width), Height: int(img.Height)})
	}
	return out
}

// wireFields holds the fields whose Go shape differs between releases of
// the API library. They are read back from the JSON form of a track.
type wireFields struct {
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
	Album struct {
		TotalTracks int `json:"total_tracks"`
	} `json:"album"`
}

func readWireFields(v any) wireFields {
	var fields wireFields
	data, err := json.Marshal(v)
	if err != nil {
		return fields
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		slog.Debug("Failed to read track fields", "error", err)
	}
	return fields
}
