package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/jaki95/spotify-downloader/internal/domain"
)

var ErrNotFound = errors.New("track not found")

// Repository persists track records and the aggregate download history.
type Repository interface {
	// UpsertTrack inserts the record or, when its external id is already
	// stored, fills the empty fill-once fields of the stored row. created is
	// true only for a fresh insert.
	UpsertTrack(ctx context.Context, rec *domain.TrackRecord) (id string, created bool, err error)

	FindTrackByExternalID(ctx context.Context, externalID string) (*domain.TrackRecord, error)

	// IncrementAggregateHistory applies delta to the singleton history as a
	// single atomic update.
	IncrementAggregateHistory(ctx context.Context, delta domain.HistoryDelta) error

	History(ctx context.Context) (*domain.DownloadHistory, error)

	SearchTracks(ctx context.Context, q domain.TrackQuery) ([]domain.TrackRecord, error)

	// InTransaction runs fn against a repository bound to one transaction.
	InTransaction(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error

	Close() error
}

const defaultSearchLimit = 50

// Open creates the repository for the configured backend.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Repository, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return NewGormRepository(cfg.Path)
	case "mongo":
		return NewMongoRepository(ctx, cfg.URI, cfg.Name)
	default:
		return nil, fmt.Errorf("unsupported database backend: %s", cfg.Backend)
	}
}

func searchLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	return limit
}
