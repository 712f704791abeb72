package locator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/downloader"
)

// Searcher is the part of the downloader the locator needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]downloader.SearchResult, error)
}

// Locator finds the media platform item for a catalog track. The first
// search hit wins; there is no ranking.
type Locator struct {
	searcher Searcher
}

func New(searcher Searcher) *Locator {
	return &Locator{searcher: searcher}
}

// Query builds the search text for a track.
func Query(title, contributor string) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s official video", title, contributor))
}

func (l *Locator) Locate(ctx context.Context, title, contributor string) (*domain.MediaRef, error) {
	query := Query(title, contributor)

	results, err := l.searcher.Search(ctx, query, 1)
	if err != nil {
		slog.Warn("Media search failed", "query", query, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrLocatorMiss, query, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocatorMiss, query)
	}

	top := results[0]
	return &domain.MediaRef{
		ID:    top.ID,
		URL:   domain.WatchURL(top.ID),
		Title: top.Title,
		Query: query,
	}, nil
}
