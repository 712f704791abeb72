package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoTransactions is returned when the MongoDB deployment is a standalone
// server, which cannot run multi-document transactions.
var ErrNoTransactions = errors.New("mongodb deployment does not support transactions; use a replica set or sharded cluster")

const (
	tracksCollection  = "tracks"
	historyCollection = "download_history"
	historyDocumentID = "singleton"
)

type trackDocument struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty"`
	TrackID            string               `bson:"track_id"`
	SpotifyURI         string               `bson:"spotify_uri,omitempty"`
	YouTubeID          string               `bson:"youtube_id,omitempty"`
	Title              string               `bson:"title"`
	Artist             string               `bson:"artist"`
	Album              string               `bson:"album"`
	Duration           int                  `bson:"duration"`
	FilePath           string               `bson:"file_path"`
	FileSize           int64                `bson:"file_size"`
	DownloadDate       time.Time            `bson:"download_date"`
	IsVideo            bool                 `bson:"is_video"`
	DownloadSource     string               `bson:"download_source"`
	AudioFormat        string               `bson:"audio_format,omitempty"`
	AudioQuality       string               `bson:"audio_quality,omitempty"`
	SubtitleFile       string               `bson:"subtitle_file,omitempty"`
	ThumbnailURL       string               `bson:"thumbnail_url,omitempty"`
	AdditionalMetadata domain.TrackMetadata `bson:"additional_metadata"`
	CreatedAt          time.Time            `bson:"created_at"`
}

type historyDocument struct {
	ID                  string     `bson:"_id"`
	TotalDownloads      int        `bson:"total_downloads"`
	TotalVideoDownloads int        `bson:"total_video_downloads"`
	TotalAudioDownloads int        `bson:"total_audio_downloads"`
	TotalFileSize       int64      `bson:"total_file_size"`
	SpotifyDownloads    int        `bson:"spotify_downloads"`
	YoutubeDownloads    int        `bson:"youtube_downloads"`
	FailedDownloads     int        `bson:"failed_downloads"`
	LastDownloadDate    *time.Time `bson:"last_download_date,omitempty"`
	LastError           string     `bson:"last_error,omitempty"`
	LastErrorDate       *time.Time `bson:"last_error_date,omitempty"`
}

// MongoRepository stores records in MongoDB. Transactions need a replica
// set deployment.
type MongoRepository struct {
	client  *mongo.Client
	tracks  *mongo.Collection
	history *mongo.Collection
}

func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	if err := checkTopology(ctx, client); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(database)
	r := &MongoRepository{
		client:  client,
		tracks:  db.Collection(tracksCollection),
		history: db.Collection(historyCollection),
	}

	_, err = r.tracks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "track_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "artist", Value: 1}}},
		{Keys: bson.D{{Key: "download_date", Value: -1}}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	slog.Debug("Connected to mongodb", "database", database)
	return r, nil
}

func checkTopology(ctx context.Context, client *mongo.Client) error {
	var hello bson.M
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		// Servers older than 4.4.2 only know the legacy command.
		if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "isMaster", Value: 1}}).Decode(&hello); err != nil {
			return fmt.Errorf("failed to read mongodb topology: %w", err)
		}
	}
	if !supportsTransactions(hello) {
		return ErrNoTransactions
	}
	return nil
}

// supportsTransactions reports whether a hello reply comes from a replica
// set member or a mongos router.
func supportsTransactions(hello bson.M) bool {
	if name, ok := hello["setName"].(string); ok && name != "" {
		return true
	}
	msg, _ := hello["msg"].(string)
	return msg == "isdbgrid"
}

func (r *MongoRepository) UpsertTrack(ctx context.Context, rec *domain.TrackRecord) (string, bool, error) {
	if rec.ExternalID == "" {
		return "", false, errors.New("track record has no external id")
	}

	doc := documentFromRecord(rec)
	res, err := r.tracks.UpdateOne(ctx,
		bson.M{"track_id": rec.ExternalID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return "", false, fmt.Errorf("failed to insert track: %w", err)
	}
	if err == nil && res.UpsertedCount > 0 {
		if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
			return oid.Hex(), true, nil
		}
	}

	var existing trackDocument
	if err := r.tracks.FindOne(ctx, bson.M{"track_id": rec.ExternalID}).Decode(&existing); err != nil {
		return "", false, fmt.Errorf("failed to load existing track: %w", err)
	}

	stored := existing.toRecord()
	if stored.MergeMissing(rec) {
		_, err := r.tracks.UpdateByID(ctx, existing.ID, bson.M{"$set": bson.M{
			"spotify_uri":   stored.ExternalURI,
			"youtube_id":    stored.PlatformID,
			"thumbnail_url": stored.ThumbnailURL,
			"subtitle_file": stored.SubtitlePath,
		}})
		if err != nil {
			return "", false, fmt.Errorf("failed to update track: %w", err)
		}
	}

	return stored.ID, false, nil
}

func (r *MongoRepository) FindTrackByExternalID(ctx context.Context, externalID string) (*domain.TrackRecord, error) {
	var doc trackDocument
	err := r.tracks.FindOne(ctx, bson.M{"track_id": externalID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find track: %w", err)
	}
	rec := doc.toRecord()
	return &rec, nil
}

func (r *MongoRepository) IncrementAggregateHistory(ctx context.Context, delta domain.HistoryDelta) error {
	inc := bson.M{
		"total_downloads":       delta.Downloads,
		"total_video_downloads": delta.VideoDownloads,
		"total_audio_downloads": delta.AudioDownloads,
		"total_file_size":       delta.Bytes,
		"failed_downloads":      delta.Failed,
	}
	switch delta.SourcePlatform {
	case domain.SourceSpotify:
		inc["spotify_downloads"] = delta.Downloads
	case domain.SourceYouTube:
		inc["youtube_downloads"] = delta.Downloads
	}

	at := delta.At
	if at.IsZero() {
		at = time.Now()
	}
	update := bson.M{"$inc": inc}
	set := bson.M{}
	if delta.Downloads > 0 {
		set["last_download_date"] = at
	}
	if delta.Failed > 0 {
		set["last_error"] = delta.LastError
		set["last_error_date"] = at
	}
	if len(set) > 0 {
		update["$set"] = set
	}

	_, err := r.history.UpdateOne(ctx, bson.M{"_id": historyDocumentID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update download history: %w", err)
	}
	return nil
}

func (r *MongoRepository) History(ctx context.Context) (*domain.DownloadHistory, error) {
	var h historyDocument
	err := r.history.FindOne(ctx, bson.M{"_id": historyDocumentID}).Decode(&h)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to load download history: %w", err)
	}

	artists, err := r.tracks.Distinct(ctx, "artist", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count artists: %w", err)
	}
	albums, err := r.tracks.Distinct(ctx, "album", bson.M{"album": bson.M{"$ne": ""}})
	if err != nil {
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
		UniqueArtists:       len(artists),
		UniqueAlbums:        len(albums),
	}, nil
}

func (r *MongoRepository) SearchTracks(ctx context.Context, q domain.TrackQuery) ([]domain.TrackRecord, error) {
	cursor, err := r.tracks.Find(ctx, searchFilter(q),
		options.Find().
			SetSort(bson.D{{Key: "download_date", Value: -1}}).
			SetLimit(int64(searchLimit(q.Limit))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []trackDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tracks: %w", err)
	}

	records := make([]domain.TrackRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toRecord())
	}
	return records, nil
}

func searchFilter(q domain.TrackQuery) bson.M {
	contains := func(s string) primitive.Regex {
		return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
	}

	filter := bson.M{}
	if q.Text != "" {
		filter["$or"] = bson.A{
			bson.M{"title": contains(q.Text)},
			bson.M{"artist": contains(q.Text)},
			bson.M{"album": contains(q.Text)},
		}
	}
	if q.Artist != "" {
		filter["artist"] = contains(q.Artist)
	}
	if q.Album != "" {
		filter["album"] = contains(q.Album)
	}
	if q.IsVideo != nil {
		filter["is_video"] = *q.IsVideo
	}
	return filter
}

func (r *MongoRepository) InTransaction(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, r)
	})
	return err
}

func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func documentFromRecord(rec *domain.TrackRecord) trackDocument {
	return trackDocument{
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
		CreatedAt:          time.Now(),
	}
}

func (d trackDocument) toRecord() domain.TrackRecord {
	return domain.TrackRecord{
		ID:             d.ID.Hex(),
		ExternalID:     d.TrackID,
		ExternalURI:    d.SpotifyURI,
		PlatformID:     d.YouTubeID,
		Title:          d.Title,
		Artist:         d.Artist,
		Album:          d.Album,
		DurationMs:     d.Duration,
		FilePath:       d.FilePath,
		FileSize:       d.FileSize,
		DownloadedAt:   d.DownloadDate,
		IsVideo:        d.IsVideo,
		SourcePlatform: d.DownloadSource,
		AudioFormat:    d.AudioFormat,
		AudioQuality:   d.AudioQuality,
		SubtitlePath:   d.SubtitleFile,
		ThumbnailURL:   d.ThumbnailURL,
		Metadata:       d.AdditionalMetadata,
	}
}
