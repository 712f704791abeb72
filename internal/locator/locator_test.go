package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/downloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string, limit int) ([]downloader.SearchResult, error) {
	args := m.Called(ctx, query, limit)
	results, _ := args.Get(0).([]downloader.SearchResult)
	return results, args.Error(1)
}

func TestLocate(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Search", mock.Anything, "Song Artist official video", 1).Return([]downloader.SearchResult{
		{ID: "first", Title: "Song"},
		{ID: "second", Title: "Song (live)"},
	}, nil)

	ref, err := New(searcher).Locate(context.Background(), "Song", "Artist")
	require.NoError(t, err)
	assert.Equal(t, "first", ref.ID)
	assert.Equal(t, "https://www.youtube.com/watch?v=first", ref.URL)
	assert.Equal(t, "Song Artist official video", ref.Query)
	searcher.AssertExpectations(t)
}

func TestLocateMiss(t *testing.T) {
	tests := []struct {
		name    string
		results []downloader.SearchResult
		err     error
	}{
		{name: "no results", results: nil},
		{name: "search error", err: errors.New("yt-dlp exited with status 1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(mockSearcher)
			searcher.On("Search", mock.Anything, mock.Anything, 1).Return(tt.results, tt.err)

			ref, err := New(searcher).Locate(context.Background(), "Nothing", "Nobody")
			assert.Nil(t, ref)
			assert.ErrorIs(t, err, domain.ErrLocatorMiss)
		})
	}
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "Title Artist official video", Query("Title", "Artist"))
}
