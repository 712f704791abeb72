package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTrackBase(t *testing.T) {
	root := filepath.Join(t.TempDir(), "downloaded_content")
	s, err := NewLocalFileStorage(root)
	require.NoError(t, err)

	tests := []struct {
		name        string
		collection  string
		title       string
		contributor string
		want        string
	}{
		{
			name:        "playlist folder",
			collection:  "Road Trip: 2024",
			title:       "Song",
			contributor: "Artist",
			want:        filepath.Join(root, "Road Trip_ 2024", "Song - Artist"),
		},
		{
			name:        "singles fallback",
			collection:  "  ",
			title:       "What?",
			contributor: "AC/DC",
			want:        filepath.Join(root, "Singles", "What_ - AC_DC"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.TrackBase(tt.collection, tt.title, tt.contributor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.DirExists(t, filepath.Dir(got))
		})
	}
}

func TestLocalPublishAndList(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)

	dir, err := s.CollectionDir("Album")
	require.NoError(t, err)

	path := filepath.Join(dir, "Song - Artist.m4a")
	_, err = s.Publish(ctx, path)
	assert.Error(t, err, "missing file cannot be published")

	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Other - Artist.m4a"), []byte("data"), 0644))

	published, err := s.Publish(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path, published)
	assert.True(t, s.FileExists(ctx, path))

	files, err := s.ListFiles(ctx, dir, "Song")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)

	r, err := s.GetReader(ctx, path)
	require.NoError(t, err)
	r.Close()
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{Type: "local", OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalFileStorage{}, s)

	_, err = New(context.Background(), config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestGCSObjectName(t *testing.T) {
	s := &GCSStorage{bucket: "media", objectPrefix: "spotify", outputDir: "/data/out"}

	assert.Equal(t, "spotify/Album/Song.m4a", s.objectName("Album/Song.m4a"))
	assert.Equal(t, "spotify/Album/Song.m4a", s.objectName("spotify/Album/Song.m4a"))
	assert.Equal(t, "spotify/Album/Song.m4a", s.objectName("gs://media/spotify/Album/Song.m4a"))
	assert.True(t, s.isLocal("/data/out/Album/Song.m4a"))
	assert.False(t, s.isLocal("Album/Song.m4a"))

	s.objectPrefix = ""
	assert.Equal(t, "Album/Song.m4a", s.objectName("/Album/Song.m4a"))
}
