package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSearchFilter(t *testing.T) {
	assert.Empty(t, searchFilter(domain.TrackQuery{}))

	f := searchFilter(domain.TrackQuery{Text: "a.b", Artist: "Joy", IsVideo: lo.ToPtr(false)})
	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 3)
	assert.Equal(t, primitive.Regex{Pattern: `a\.b`, Options: "i"}, or[0].(bson.M)["title"])
	assert.Equal(t, primitive.Regex{Pattern: "Joy", Options: "i"}, f["artist"])
	assert.Equal(t, false, f["is_video"])
}

func TestTrackDocumentRoundTrip(t *testing.T) {
	rec := testRecord("t1")
	rec.ExternalURI = "spotify:track:t1"

	doc := documentFromRecord(rec)
	doc.ID = primitive.NewObjectID()

	got := doc.toRecord()
	assert.Equal(t, doc.ID.Hex(), got.ID)
	got.ID = ""
	assert.Equal(t, *rec, got)
}

func TestSupportsTransactions(t *testing.T) {
	tests := []struct {
		name  string
		hello bson.M
		want  bool
	}{
		{name: "standalone", hello: bson.M{"isWritablePrimary": true, "maxWireVersion": int32(17)}, want: false},
		{name: "replica set primary", hello: bson.M{"isWritablePrimary": true, "setName": "rs0"}, want: true},
		{name: "replica set secondary", hello: bson.M{"secondary": true, "setName": "rs0"}, want: true},
		{name: "mongos", hello: bson.M{"isWritablePrimary": true, "msg": "isdbgrid"}, want: true},
		{name: "empty set name", hello: bson.M{"setName": ""}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, supportsTransactions(tt.hello))
		})
	}
}

// Runs only against a standalone server named by MONGODB_STANDALONE_TEST_URI.
func TestMongoRepositoryRejectsStandalone(t *testing.T) {
	uri := os.Getenv("MONGODB_STANDALONE_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_STANDALONE_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := NewMongoRepository(ctx, uri, "spotify_downloads_test")
	assert.ErrorIs(t, err, ErrNoTransactions)
}

// Runs only against a replica set named by MONGODB_TEST_URI.
func TestMongoRepository(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewMongoRepository(ctx, uri, "spotify_downloads_test_"+primitive.NewObjectID().Hex())
	require.NoError(t, err)
	defer func() {
		repo.tracks.Database().Drop(ctx)
		repo.Close()
	}()

	err = repo.InTransaction(ctx, func(ctx context.Context, tx Repository) error {
		_, created, err := tx.UpsertTrack(ctx, testRecord("t1"))
		if err != nil {
			return err
		}
		assert.True(t, created)
		return tx.IncrementAggregateHistory(ctx, domain.DeltaForRecord(testRecord("t1")))
	})
	require.NoError(t, err)

	_, created, err := repo.UpsertTrack(ctx, testRecord("t1"))
	require.NoError(t, err)
	assert.False(t, created)

	h, err := repo.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.TotalDownloads)
	assert.Equal(t, 1, h.UniqueArtists)
}
