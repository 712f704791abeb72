package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*Recorder, repository.Repository) {
	t.Helper()
	repo, err := repository.NewGormRepository(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	r := New(repo, "192K")
	r.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	return r, repo
}

func testDescriptor() *domain.TrackDescriptor {
	return &domain.TrackDescriptor{
		ExternalID:     "4uLU6hMCjMI75M1A2tKUQC",
		Title:          "Never Gonna Give You Up",
		Contributors:   []string{"Rick Astley", "Guest"},
		DurationMs:     213573,
		ExternalURI:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		CollectionName: "Whenever You Need Somebody",
		CollectionID:   "album1",
		TrackNumber:    1,
		Artwork: []domain.Artwork{
			{URL: "https://i.scdn.co/small", Width: 64, Height: 64},
			{URL: "https://i.scdn.co/large", Width: 640, Height: 640},
		},
	}
}

func testOutcome(t *testing.T) *domain.Outcome {
	path := filepath.Join(t.TempDir(), "Never Gonna Give You Up - Rick Astley.m4a")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0644))
	return &domain.Outcome{
		Status:   domain.OutcomeSucceeded,
		FilePath: path,
		Media:    &domain.MediaRef{ID: "dQw4w9WgXcQ"},
	}
}

func TestRecordBuildsRecord(t *testing.T) {
	r, _ := newTestRecorder(t)
	ctx := context.Background()
	outcome := testOutcome(t)

	id, err := r.Record(ctx, testDescriptor(), outcome, domain.FormatAudio)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	rec, err := r.Lookup(ctx, "4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Rick Astley, Guest", rec.Artist)
	assert.Equal(t, "Whenever You Need Somebody", rec.Album)
	assert.Equal(t, int64(2048), rec.FileSize)
	assert.Equal(t, "m4a", rec.AudioFormat)
	assert.Equal(t, "192K", rec.AudioQuality)
	assert.Equal(t, domain.SourceSpotify, rec.SourcePlatform)
	assert.Equal(t, "dQw4w9WgXcQ", rec.PlatformID)
	assert.Equal(t, "https://i.scdn.co/large", rec.ThumbnailURL)
	assert.False(t, rec.IsVideo)
	assert.Equal(t, domain.MetadataVersion, rec.Metadata.Version)
	assert.Equal(t, "album1", rec.Metadata.AlbumID)
}

func TestRecordIsIdempotent(t *testing.T) {
	r, _ := newTestRecorder(t)
	ctx := context.Background()

	first, err := r.Record(ctx, testDescriptor(), testOutcome(t), domain.FormatAudio)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := r.Record(ctx, testDescriptor(), testOutcome(t), domain.FormatAudio)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	h, err := r.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.TotalDownloads, "history increments once per new record")
	assert.Equal(t, 1, h.SpotifyDownloads)
	assert.Equal(t, 1, h.TotalAudioDownloads)
	assert.Equal(t, int64(2048), h.TotalFileSize)
}

func TestRecordMergeFillsMissingFields(t *testing.T) {
	r, _ := newTestRecorder(t)
	ctx := context.Background()

	bare := testDescriptor()
	bare.ExternalURI = ""
	bare.Artwork = nil
	outcome := testOutcome(t)
	outcome.Media = nil
	_, err := r.Record(ctx, bare, outcome, domain.FormatAudio)
	require.NoError(t, err)

	_, err = r.Record(ctx, testDescriptor(), testOutcome(t), domain.FormatAudio)
	require.NoError(t, err)

	rec, err := r.Lookup(ctx, bare.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", rec.ExternalURI)
	assert.Equal(t, "dQw4w9WgXcQ", rec.PlatformID)
	assert.Equal(t, "https://i.scdn.co/large", rec.ThumbnailURL)
}

func TestRecordVideo(t *testing.T) {
	r, _ := newTestRecorder(t)
	ctx := context.Background()

	outcome := testOutcome(t)
	outcome.FileSize = 99
	_, err := r.Record(ctx, testDescriptor(), outcome, domain.FormatVideo)
	require.NoError(t, err)

	rec, err := r.Lookup(ctx, testDescriptor().ExternalID)
	require.NoError(t, err)
	assert.True(t, rec.IsVideo)
	assert.Empty(t, rec.AudioQuality)
	assert.Equal(t, int64(99), rec.FileSize)

	h, err := r.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.TotalVideoDownloads)
	assert.Zero(t, h.TotalAudioDownloads)
}

func TestRecordFailure(t *testing.T) {
	r, _ := newTestRecorder(t)
	ctx := context.Background()

	require.NoError(t, r.RecordFailure(ctx, errors.New("no YouTube results")))

	h, err := r.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.FailedDownloads)
	assert.Equal(t, "no YouTube results", h.LastError)
	assert.Zero(t, h.TotalDownloads)
}

type failingRepo struct {
	repository.Repository
	increments int
}

func (f *failingRepo) InTransaction(ctx context.Context, fn func(context.Context, repository.Repository) error) error {
	return fn(ctx, f)
}

func (f *failingRepo) UpsertTrack(context.Context, *domain.TrackRecord) (string, bool, error) {
	return "", false, errors.New("database is locked")
}

func (f *failingRepo) IncrementAggregateHistory(context.Context, domain.HistoryDelta) error {
	f.increments++
	return nil
}

func TestRecordPersistenceFailure(t *testing.T) {
	repo := &failingRepo{}
	r := New(repo, "192K")

	id, err := r.Record(context.Background(), testDescriptor(), testOutcome(t), domain.FormatAudio)
	assert.Empty(t, id)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Zero(t, repo.increments, "failed writes never touch the history")
}

func TestRecordWithoutFile(t *testing.T) {
	r, _ := newTestRecorder(t)

	_, err := r.Record(context.Background(), testDescriptor(), &domain.Outcome{}, domain.FormatAudio)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
