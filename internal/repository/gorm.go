package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const historyRowID = 1

type trackModel struct {
	ID                 uint                 `gorm:"primaryKey"`
	TrackID            string               `gorm:"column:track_id;uniqueIndex;not null"`
	SpotifyURI         string               `gorm:"column:spotify_uri"`
	YouTubeID          string               `gorm:"column:youtube_id"`
	Title              string               `gorm:"index;not null"`
	Artist             string               `gorm:"index;not null"`
	Album              string               `gorm:"index"`
	Duration           int                  `gorm:"column:duration"`
	FilePath           string               `gorm:"not null"`
	FileSize           int64                `gorm:"default:0"`
	DownloadDate       time.Time            `gorm:"index"`
	LastPlayed         *time.Time
	PlayCount          int    `gorm:"default:0"`
	IsVideo            bool   `gorm:"column:is_video"`
	DownloadSource     string `gorm:"column:download_source"`
	AudioFormat        string
	AudioQuality       string
	SubtitleFile       string               `gorm:"column:subtitle_file"`
	ThumbnailURL       string               `gorm:"column:thumbnail_url"`
	AdditionalMetadata domain.TrackMetadata `gorm:"column:additional_metadata;serializer:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (trackModel) TableName() string { return "downloaded_tracks" }

type historyModel struct {
	ID                  uint  `gorm:"primaryKey"`
	TotalDownloads      int   `gorm:"default:0"`
	TotalVideoDownloads int   `gorm:"default:0"`
	TotalAudioDownloads int   `gorm:"default:0"`
	TotalFileSize       int64 `gorm:"default:0"`
	SpotifyDownloads    int   `gorm:"default:0"`
	YoutubeDownloads    int   `gorm:"default:0"`
	FailedDownloads     int   `gorm:"default:0"`
	LastDownloadDate    *time.Time
	LastError           string
	LastErrorDate       *time.Time
}

func (historyModel) TableName() string { return "download_history" }

// GormRepository stores records in SQLite through gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository opens (creating if needed) the SQLite database at path
// and migrates the schema.
func NewGormRepository(path string) (*GormRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&trackModel{}, &historyModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.FirstOrCreate(&historyModel{ID: historyRowID}).Error; err != nil {
		return nil, fmt.Errorf("failed to create history row: %w", err)
	}

	slog.Debug("Opened track database", "path", path)
	return &GormRepository{db: db}, nil
}

func (r *GormRepository) UpsertTrack(ctx context.Context, rec *domain.TrackRecord) (string, bool, error) {
	if rec.ExternalID == "" {
		return "", false, errors.New("track record has no external id")
	}

	m := fromRecord(rec)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "track_id"}}, DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return "", false, fmt.Errorf("failed to insert track: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return strconv.FormatUint(uint64(m.ID), 10), true, nil
	}

	var existing trackModel
	if err := r.db.WithContext(ctx).Where("track_id = ?", rec.ExternalID).First(&existing).Error; err != nil {
		return "", false, fmt.Errorf("failed to load existing track: %w", err)
	}

	stored := existing.toRecord()
	if stored.MergeMissing(rec) {
		err := r.db.WithContext(ctx).Model(&trackModel{}).Where("id = ?", existing.ID).Updates(map[string]any{
			"spotify_uri":   stored.ExternalURI,
			"youtube_id":    stored.PlatformID,
			"thumbnail_url": stored.ThumbnailURL,
			"subtitle_file": stored.SubtitlePath,
		}).Error
		if err != nil {
			return "", false, fmt.Errorf("failed to update track: %w", err)
		}
	}

	return stored.ID, false, nil
}

func (r *GormRepository) FindTrackByExternalID(ctx context.Context, externalID string) (*domain.TrackRecord, error) {
	var m trackModel
	err := r.db.WithContext(ctx).Where("track_id = ?", externalID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find track: %w", err)
	}
	rec := m.toRecord()
	return &rec, nil
}

func (r *GormRepository) IncrementAggregateHistory(ctx context.Context, delta domain.HistoryDelta) error {
	updates := map[string]any{
		"total_downloads":       gorm.Expr("total_downloads + ?", delta.Downloads),
		"total_video_downloads": gorm.Expr("total_video_downloads + ?", delta.VideoDownloads),
		"total_audio_downloads": gorm.Expr("total_audio_downloads + ?", delta.AudioDownloads),
		"total_file_size":       gorm.Expr("total_file_size + ?", delta.Bytes),
		"failed_downloads":      gorm.Expr("failed_downloads + ?", delta.Failed),
	}

	switch delta.SourcePlatform {
	case domain.SourceSpotify:
		updates["spotify_downloads"] = gorm.Expr("spotify_downloads + ?", delta.Downloads)
	case domain.SourceYouTube:
		updates["youtube_downloads"] = gorm.Expr("youtube_downloads + ?", delta.Downloads)
	}

	at := delta.At
	if at.IsZero() {
		at = time.Now()
	}
	if delta.Downloads > 0 {
		updates["last_download_date"] = at
	}
	if delta.Failed > 0 {
		updates["last_error"] = delta.LastError
		updates["last_error_date"] = at
	}

	res := r.db.WithContext(ctx).Model(&historyModel{}).Where("id = ?", historyRowID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update download history: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New("download history row is missing")
	}
	return nil
}

func (r *GormRepository) History(ctx context.Context) (*domain.DownloadHistory, error) {
	var h historyModel
	err := r.db.WithContext(ctx).First(&h, historyRowID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load download history: %w", err)
	}

	var artists, albums int64
	if err := r.db.WithContext(ctx).Model(&trackModel{}).Distinct("artist").Count(&artists).Error; err != nil {
		return nil, fmt.Errorf("failed to count artists: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&trackModel{}).Where("album <> ''").Distinct("album").Count(&albums).Error; err != nil {
		return nil, fmt.Errorf("failed to count albums: %w", err)
	}

	return &domain.DownloadHistory{
		TotalDownloads:      h.TotalDownloads,
		TotalVideoDownloads: h.TotalVideoDownloads,
		TotalAudioDownloads: h.TotalAudioDownloads,
		TotalFileSize:       h.TotalFileSize,
		SpotifyDownloads:    h.SpotifyDownloads,
		YouTubeDownloads:    h.YoutubeDownloads,
		FailedDownloads:     h.FailedDownloads,
		LastDownloadDate:    h.LastDownloadDate,
		LastError:           h.LastError,
		LastErrorDate:       h.LastErrorDate,
		UniqueArtists:       int(artists),
		UniqueAlbums:        int(albums),
	}, nil
}

func (r *GormRepository) SearchTracks(ctx context.Context, q domain.TrackQuery) ([]domain.TrackRecord, error) {
	tx := r.db.WithContext(ctx).Model(&trackModel{})

	if q.Text != "" {
		like := "%" + strings.ToLower(q.Text) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(artist) LIKE ? OR LOWER(album) LIKE ?", like, like, like)
	}
	if q.Artist != "" {
		tx = tx.Where("LOWER(artist) LIKE ?", "%"+strings.ToLower(q.Artist)+"%")
	}
	if q.Album != "" {
		tx = tx.Where("LOWER(album) LIKE ?", "%"+strings.ToLower(q.Album)+"%")
	}
	if q.IsVideo != nil {
		tx = tx.Where("is_video = ?", *q.IsVideo)
	}

	var models []trackModel
	if err := tx.Order("download_date DESC").Limit(searchLimit(q.Limit)).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}

	records := make([]domain.TrackRecord, 0, len(models))
	for _, m := range models {
		records = append(records, m.toRecord())
	}
	return records, nil
}

func (r *GormRepository) InTransaction(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormRepository{db: tx})
	})
}

func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromRecord(rec *domain.TrackRecord) trackModel {
	return trackModel{
		TrackID:            rec.ExternalID,
		SpotifyURI:         rec.ExternalURI,
		YouTubeID:          rec.PlatformID,
		Title:              rec.Title,
		Artist:             rec.Artist,
		Album:              rec.Album,
		Duration:           rec.DurationMs,
		FilePath:           rec.FilePath,
		FileSize:           rec.FileSize,
		DownloadDate:       rec.DownloadedAt,
		IsVideo:            rec.IsVideo,
		DownloadSource:     rec.SourcePlatform,
		AudioFormat:        rec.AudioFormat,
		AudioQuality:       rec.AudioQuality,
		SubtitleFile:       rec.SubtitlePath,
		ThumbnailURL:       rec.ThumbnailURL,
		AdditionalMetadata: rec.Metadata,
	}
}

func (m trackModel) toRecord() domain.TrackRecord {
	return domain.TrackRecord{
		ID:             strconv.FormatUint(uint64(m.ID), 10),
		ExternalID:     m.TrackID,
		ExternalURI:    m.SpotifyURI,
		PlatformID:     m.YouTubeID,
		Title:          m.Title,
		Artist:         m.Artist,
		Album:          m.Album,
		DurationMs:     m.Duration,
		FilePath:       m.FilePath,
		FileSize:       m.FileSize,
		DownloadedAt:   m.DownloadDate,
		IsVideo:        m.IsVideo,
		SourcePlatform: m.DownloadSource,
		AudioFormat:    m.AudioFormat,
		AudioQuality:   m.AudioQuality,
		SubtitlePath:   m.SubtitleFile,
		ThumbnailURL:   m.ThumbnailURL,
		Metadata:       m.AdditionalMetadata,
	}
}
