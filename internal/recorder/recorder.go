package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/repository"
)

// Recorder turns finished downloads into persisted track records and keeps
// the aggregate history in step with them.
type Recorder struct {
	repo         repository.Repository
	audioQuality string
	now          func() time.Time
}

func New(repo repository.Repository, audioQuality string) *Recorder {
	return &Recorder{
		repo:         repo,
		audioQuality: audioQuality,
		now:          time.Now,
	}
}

// Record persists the outcome of a successful download. The history is
// incremented in the same transaction, and only when the record is new.
// Any failure leaves nothing behind and wraps domain.ErrPersistence.
func (r *Recorder) Record(ctx context.Context, desc *domain.TrackDescriptor, outcome *domain.Outcome, format domain.Format) (string, error) {
	if outcome.FilePath == "" {
		return "", fmt.Errorf("%w: outcome has no file", domain.ErrPersistence)
	}

	rec := r.buildRecord(desc, outcome, format)

	var id string
	err := r.repo.InTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		var created bool
		var err error
		id, created, err = tx.UpsertTrack(ctx, rec)
		if err != nil {
			return err
		}
		if !created {
			slog.Debug("Track already recorded", "track_id", rec.ExternalID, "id", id)
			return nil
		}
		return tx.IncrementAggregateHistory(ctx, domain.DeltaForRecord(rec))
	})
	if err != nil {
		slog.Error("Failed to record track", "track_id", rec.ExternalID, "path", rec.FilePath, "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	slog.Info("Recorded track", "track_id", rec.ExternalID, "id", id, "title", rec.Title)
	return id, nil
}

// RecordFailure counts a failed track download in the history. It never
// touches the success counters.
func (r *Recorder) RecordFailure(ctx context.Context, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	err := r.repo.IncrementAggregateHistory(ctx, domain.HistoryDelta{
		Failed:    1,
		LastError: msg,
		At:        r.now(),
	})
	if err != nil {
		slog.Warn("Failed to record download failure", "error", err)
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// History returns the aggregate download statistics.
func (r *Recorder) History(ctx context.Context) (*domain.DownloadHistory, error) {
	return r.repo.History(ctx)
}

// SearchTracks lists stored records matching q.
func (r *Recorder) SearchTracks(ctx context.Context, q domain.TrackQuery) ([]domain.TrackRecord, error) {
	return r.repo.SearchTracks(ctx, q)
}

// Lookup returns the stored record for an external track id, or nil.
func (r *Recorder) Lookup(ctx context.Context, externalID string) (*domain.TrackRecord, error) {
	rec, err := r.repo.FindTrackByExternalID(ctx, externalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func (r *Recorder) buildRecord(desc *domain.TrackDescriptor, outcome *domain.Outcome, format domain.Format) *domain.TrackRecord {
	size := outcome.FileSize
	if size == 0 {
		if info, err := os.Stat(outcome.FilePath); err == nil {
			size = info.Size()
		}
	}

	rec := &domain.TrackRecord{
		ExternalID:     desc.ExternalID,
		ExternalURI:    desc.ExternalURI,
		Title:          desc.Title,
		Artist:         desc.ContributorLine(),
		Album:          desc.CollectionName,
		DurationMs:     desc.DurationMs,
		FilePath:       outcome.FilePath,
		FileSize:       size,
		DownloadedAt:   r.now(),
		IsVideo:        format.IsVideo(),
		SourcePlatform: domain.SourceSpotify,
		AudioFormat:    strings.TrimPrefix(filepath.Ext(outcome.FilePath), "."),
		SubtitlePath:   outcome.SubtitlePath,
		ThumbnailURL:   desc.ArtworkURL(),
		Metadata:       desc.Metadata(),
	}
	if !rec.IsVideo {
		rec.AudioQuality = r.audioQuality
	}
	if outcome.Media != nil {
		rec.PlatformID = outcome.Media.ID
	}
	return rec
}
