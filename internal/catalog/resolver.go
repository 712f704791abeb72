package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/samber/lo"
)

// Resolution is the ordered list of descriptors behind a catalog URL plus
// the collection they were found in.
type Resolution struct {
	Reference      Reference
	CollectionName string
	Artwork        []domain.Artwork
	Tracks         []*domain.TrackDescriptor

	// Partial is set when pagination stopped early. Tracks holds every page
	// fetched before PartialErr.
	Partial    bool
	PartialErr error
}

// ArtworkURL is the collection thumbnail, the first image the catalog lists.
func (r *Resolution) ArtworkURL() string {
	if len(r.Artwork) == 0 {
		return ""
	}
	return r.Artwork[0].URL
}

// PageSource looks up collection pages when the API omits artwork.
type PageSource interface {
	Scrape(pageURL string) (*PageInfo, error)
}

type Resolver struct {
	client  Client
	scraper PageSource
}

// NewResolver wires a resolver. scraper may be nil.
func NewResolver(client Client, scraper PageSource) *Resolver {
	return &Resolver{client: client, scraper: scraper}
}

func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Resolution, error) {
	ref, err := Classify(rawURL)
	if err != nil {
		return nil, err
	}

	slog.Debug("Resolving catalog reference", "kind", ref.Kind, "id", ref.ID)

	switch ref.Kind {
	case domain.KindTrack:
		return r.resolveTrack(ctx, ref)
	case domain.KindAlbum:
		return r.resolveAlbum(ctx, ref)
	default:
		return r.resolvePlaylist(ctx, ref)
	}
}

func (r *Resolver) resolveTrack(ctx context.Context, ref Reference) (*Resolution, error) {
	track, err := r.client.Track(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
	}

	res := &Resolution{Reference: ref, CollectionName: domain.SinglesFolder}
	album := track.Album
	if album != nil && album.Name != "" {
		res.CollectionName = album.Name
		res.Artwork = toArtwork(album.Images)
		if album.ID != "" {
			if full, err := r.client.Album(ctx, album.ID); err == nil {
				album = &full.AlbumRef
				res.CollectionName = lo.Ternary(full.Name != "", full.Name, res.CollectionName)
				if len(full.Images) > 0 {
					res.Artwork = toArtwork(full.Images)
				}
			} else {
				slog.Warn("Failed to fetch album for track", "album_id", album.ID, "error", err)
			}
		}
	}

	res.Tracks = []*domain.TrackDescriptor{describe(track, album)}
	return res, nil
}

func (r *Resolver) resolveAlbum(ctx context.Context, ref Reference) (*Resolution, error) {
	album, err := r.client.Album(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
	}

	res := &Resolution{
		Reference:      ref,
		CollectionName: lo.Ternary(album.Name != "", album.Name, domain.UnknownAlbum),
		Artwork:        toArtwork(album.Images),
	}
	r.fillArtwork(res, album.ExternalURLs.Spotify)

	albumRef := album.AlbumRef
	if len(albumRef.Images) == 0 {
		albumRef.Images = fromArtwork(res.Artwork)
	}

	next := ""
	for {
		page, err := r.client.AlbumTracks(ctx, ref.ID, next)
		if err != nil {
			markPartial(res, err)
			break
		}
		for i := range page.Items {
			res.Tracks = append(res.Tracks, describe(&page.Items[i], &albumRef))
		}
		if page.Next == "" {
			break
		}
		next = page.Next
	}

	slog.Info("Resolved album", "name", res.CollectionName, "tracks", len(res.Tracks))
	return res, nil
}

func (r *Resolver) resolvePlaylist(ctx context.Context, ref Reference) (*Resolution, error) {
	playlist, err := r.client.Playlist(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
	}

	res := &Resolution{
		Reference:      ref,
		CollectionName: lo.Ternary(playlist.Name != "", playlist.Name, "Unknown Playlist"),
		Artwork:        toArtwork(playlist.Images),
	}
	r.fillArtwork(res, playlist.ExternalURLs.Spotify)

	next := ""
	skipped := 0
	for {
		page, err := r.client.PlaylistTracks(ctx, ref.ID, next)
		if err != nil {
			markPartial(res, err)
			break
		}
		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				skipped++
				continue
			}
			res.Tracks = append(res.Tracks, describe(item.Track, item.Track.Album))
		}
		if page.Next == "" {
			break
		}
		next = page.Next
	}

	slog.Info("Resolved playlist", "name", res.CollectionName, "tracks", len(res.Tracks), "skipped", skipped)
	return res, nil
}

func (r *Resolver) fillArtwork(res *Resolution, pageURL string) {
	if len(res.Artwork) > 0 || r.scraper == nil || pageURL == "" {
		return
	}
	info, err := r.scraper.Scrape(pageURL)
	if err != nil {
		slog.Warn("Failed to scrape collection artwork", "url", pageURL, "error", err)
		return
	}
	res.Artwork = info.Artwork
}

func markPartial(res *Resolution, err error) {
	res.Partial = true
	res.PartialErr = err
	slog.Warn("Pagination stopped early", "collection", res.CollectionName, "fetched", len(res.Tracks), "error", err)
}

// describe never fails: missing fields get their sentinel values.
func describe(track *Track, album *AlbumRef) *domain.TrackDescriptor {
	d := &domain.TrackDescriptor{
		ExternalID:  track.ID,
		Title:       track.Name,
		DurationMs:  track.DurationMs,
		ExternalURI: track.URI,
		TrackNumber: track.TrackNumber,
		DiscNumber:  track.DiscNumber,
		Popularity:  track.Popularity,
		Explicit:    track.Explicit,
		Permalink:   track.ExternalURLs.Spotify,
		PreviewURL:  track.PreviewURL,
		ISRC:        track.ExternalIDs.ISRC,
		Contributors: lo.Map(track.Artists, func(a Artist, _ int) string {
			return a.Name
		}),
		ContributorIDs: lo.FilterMap(track.Artists, func(a Artist, _ int) (string, bool) {
			return a.ID, a.ID != ""
		}),
		CollectionName: domain.UnknownAlbum,
	}

	if album != nil {
		if album.Name != "" {
			d.CollectionName = album.Name
		}
		d.CollectionID = album.ID
		d.CollectionKind = album.AlbumType
		d.ReleaseDate = album.ReleaseDate
		d.CollectionTracks = album.TotalTracks
		d.Artwork = toArtwork(album.Images)
	}

	d.Normalize()
	return d
}

func toArtwork(images []Image) []domain.Artwork {
	return lo.Map(images, func(img Image, _ int) domain.Artwork {
		return domain.Artwork{URL: img.URL, Width: img.Width, Height: img.Height}
	})
}

func fromArtwork(images []domain.Artwork) []Image {
	return lo.Map(images, func(img domain.Artwork, _ int) Image {
		return Image{URL: img.URL, Width: img.Width, Height: img.Height}
	})
}
