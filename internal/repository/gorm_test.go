package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *GormRepository {
	t.Helper()
	repo, err := NewGormRepository(filepath.Join(t.TempDir(), "data", "tracks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRecord(id string) *domain.TrackRecord {
	return &domain.TrackRecord{
		ExternalID:     id,
		Title:          "Song " + id,
		Artist:         "Artist A, Artist B",
		Album:          "Album",
		DurationMs:     215000,
		FilePath:       "/music/Album/Song - Artist A.m4a",
		FileSize:       4 << 20,
		DownloadedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		SourcePlatform: domain.SourceSpotify,
		AudioFormat:    "m4a",
		Metadata: domain.TrackMetadata{
			Version:     domain.MetadataVersion,
			AlbumID:     "album1",
			TrackNumber: 3,
			Explicit:    true,
			Extensions:  map[string]string{"label": "Indie"},
		},
	}
}

func TestUpsertTrackIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, created, err := repo.UpsertTrack(ctx, testRecord("t1"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, id)

	again, created, err := repo.UpsertTrack(ctx, testRecord("t1"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	results, err := repo.SearchTracks(ctx, domain.TrackQuery{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestUpsertTrackFillsMissingFields(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, _, err := repo.UpsertTrack(ctx, testRecord("t1"))
	require.NoError(t, err)

	update := testRecord("t1")
	update.ExternalURI = "spotify:track:t1"
	update.PlatformID = "yt1"
	update.Title = "Renamed"
	_, created, err := repo.UpsertTrack(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.FindTrackByExternalID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:t1", stored.ExternalURI)
	assert.Equal(t, "yt1", stored.PlatformID)
	assert.Equal(t, "Song t1", stored.Title, "non fill-once fields are kept")
	assert.Equal(t, 3, stored.Metadata.TrackNumber)
	assert.Equal(t, "Indie", stored.Metadata.Extensions["label"])

	second := testRecord("t1")
	second.PlatformID = "yt2"
	_, _, err = repo.UpsertTrack(ctx, second)
	require.NoError(t, err)

	stored, err = repo.FindTrackByExternalID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "yt1", stored.PlatformID, "filled fields are not overwritten")
}

func TestFindTrackByExternalIDNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.FindTrackByExternalID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementAggregateHistory(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	h, err := repo.History(ctx)
	require.NoError(t, err)
	assert.Zero(t, h.TotalDownloads)
	assert.Nil(t, h.LastDownloadDate)

	rec := testRecord("t1")
	require.NoError(t, repo.IncrementAggregateHistory(ctx, domain.DeltaForRecord(rec)))

	video := testRecord("t2")
	video.IsVideo = true
	require.NoError(t, repo.IncrementAggregateHistory(ctx, domain.DeltaForRecord(video)))

	require.NoError(t, repo.IncrementAggregateHistory(ctx, domain.HistoryDelta{Failed: 1, LastError: "boom"}))

	h, err = repo.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.TotalDownloads)
	assert.Equal(t, 1, h.TotalAudioDownloads)
	assert.Equal(t, 1, h.TotalVideoDownloads)
	assert.Equal(t, 2, h.SpotifyDownloads)
	assert.Zero(t, h.YouTubeDownloads)
	assert.Equal(t, int64(8<<20), h.TotalFileSize)
	assert.Equal(t, 1, h.FailedDownloads)
	assert.Equal(t, "boom", h.LastError)
	require.NotNil(t, h.LastDownloadDate)
	require.NotNil(t, h.LastErrorDate)
}

func TestInTransactionRollsBack(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	err := repo.InTransaction(ctx, func(ctx context.Context, tx Repository) error {
		if _, _, err := tx.UpsertTrack(ctx, testRecord("t1")); err != nil {
			return err
		}
		if err := tx.IncrementAggregateHistory(ctx, domain.HistoryDelta{Downloads: 1}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repo.FindTrackByExternalID(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	h, err := repo.History(ctx)
	require.NoError(t, err)
	assert.Zero(t, h.TotalDownloads)
}

func TestSearchTracksAndUniqueCounts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := testRecord("a")
	a.Title, a.Artist, a.Album = "Blue Monday", "New Order", "Power, Corruption & Lies"
	b := testRecord("b")
	b.Title, b.Artist, b.Album = "Ceremony", "New Order", "Substance"
	b.DownloadedAt = a.DownloadedAt.Add(time.Hour)
	c := testRecord("c")
	c.Title, c.Artist, c.Album = "Atmosphere", "Joy Division", ""
	c.IsVideo = true

	for _, rec := range []*domain.TrackRecord{a, b, c} {
		_, _, err := repo.UpsertTrack(ctx, rec)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		query domain.TrackQuery
		want  []string
	}{
		{name: "all newest first", query: domain.TrackQuery{}, want: []string{"b", "a", "c"}},
		{name: "text matches title", query: domain.TrackQuery{Text: "blue"}, want: []string{"a"}},
		{name: "text matches artist", query: domain.TrackQuery{Text: "new order"}, want: []string{"b", "a"}},
		{name: "artist filter", query: domain.TrackQuery{Artist: "joy"}, want: []string{"c"}},
		{name: "album filter", query: domain.TrackQuery{Album: "substance"}, want: []string{"b"}},
		{name: "video only", query: domain.TrackQuery{IsVideo: lo.ToPtr(true)}, want: []string{"c"}},
		{name: "limit", query: domain.TrackQuery{Limit: 1}, want: []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.SearchTracks(ctx, tt.query)
			require.NoError(t, err)

			var ids []string
			for _, r := range results {
				ids = append(ids, r.ExternalID)
			}
			assert.ElementsMatch(t, tt.want, ids)
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want[0], ids[0])
			}
		})
	}

	h, err := repo.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.UniqueArtists)
	assert.Equal(t, 2, h.UniqueAlbums)
}
