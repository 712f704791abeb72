package domain

import "time"

// MetadataVersion is bumped whenever TrackMetadata changes shape.
const MetadataVersion = 1

// SourceSpotify is the source platform recorded for catalog downloads.
const SourceSpotify = "spotify"

// SourceYouTube is the counter key for direct media platform downloads.
const SourceYouTube = "youtube"

// TrackMetadata holds the catalog fields that do not have their own column.
type TrackMetadata struct {
	Version          int               `json:"version" bson:"version"`
	AlbumID          string            `json:"album_id,omitempty" bson:"album_id,omitempty"`
	AlbumType        string            `json:"album_type,omitempty" bson:"album_type,omitempty"`
	ReleaseDate      string            `json:"release_date,omitempty" bson:"release_date,omitempty"`
	AlbumTotalTracks int               `json:"album_total_tracks,omitempty" bson:"album_total_tracks,omitempty"`
	TrackNumber      int               `json:"track_number,omitempty" bson:"track_number,omitempty"`
	DiscNumber       int               `json:"disc_number,omitempty" bson:"disc_number,omitempty"`
	Popularity       int               `json:"popularity,omitempty" bson:"popularity,omitempty"`
	Explicit         bool              `json:"explicit" bson:"explicit"`
	ISRC             string            `json:"isrc,omitempty" bson:"isrc,omitempty"`
	PreviewURL       string            `json:"preview_url,omitempty" bson:"preview_url,omitempty"`
	Permalink        string            `json:"permalink,omitempty" bson:"permalink,omitempty"`
	ContributorIDs   []string          `json:"contributor_ids,omitempty" bson:"contributor_ids,omitempty"`
	Extensions       map[string]string `json:"extensions,omitempty" bson:"extensions,omitempty"`
}

// TrackRecord is the persisted form of a downloaded track. ExternalID is
// unique across the repository.
type TrackRecord struct {
	ID             string        `json:"id"`
	ExternalID     string        `json:"track_id"`
	ExternalURI    string        `json:"spotify_uri,omitempty"`
	PlatformID     string        `json:"youtube_id,omitempty"`
	Title          string        `json:"title"`
	Artist         string        `json:"artist"`
	Album          string        `json:"album,omitempty"`
	DurationMs     int           `json:"duration"`
	FilePath       string        `json:"file_path"`
	FileSize       int64         `json:"file_size"`
	DownloadedAt   time.Time     `json:"download_date"`
	IsVideo        bool          `json:"is_video"`
	SourcePlatform string        `json:"download_source"`
	AudioFormat    string        `json:"audio_format,omitempty"`
	AudioQuality   string        `json:"audio_quality,omitempty"`
	SubtitlePath   string        `json:"subtitle_file,omitempty"`
	ThumbnailURL   string        `json:"thumbnail_url,omitempty"`
	Metadata       TrackMetadata `json:"additional_metadata"`
}

// MergeMissing copies the fill-once fields from other into r where r has
// none. It reports whether anything changed.
func (r *TrackRecord) MergeMissing(other *TrackRecord) bool {
	changed := false
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}
	fill(&r.ExternalURI, other.ExternalURI)
	fill(&r.PlatformID, other.PlatformID)
	fill(&r.ThumbnailURL, other.ThumbnailURL)
	fill(&r.SubtitlePath, other.SubtitlePath)
	return changed
}

// HistoryDelta is one increment of the aggregate download history.
type HistoryDelta struct {
	Downloads      int
	VideoDownloads int
	AudioDownloads int
	Bytes          int64
	SourcePlatform string
	Failed         int
	LastError      string
	At             time.Time
}

// DeltaForRecord builds the history increment for a newly created record.
func DeltaForRecord(r *TrackRecord) HistoryDelta {
	d := HistoryDelta{
		Downloads:      1,
		Bytes:          r.FileSize,
		SourcePlatform: r.SourcePlatform,
		At:             r.DownloadedAt,
	}
	if r.IsVideo {
		d.VideoDownloads = 1
	} else {
		d.AudioDownloads = 1
	}
	return d
}

// DownloadHistory is the singleton aggregate of all downloads.
type DownloadHistory struct {
	TotalDownloads      int        `json:"total_downloads"`
	TotalVideoDownloads int        `json:"total_video_downloads"`
	TotalAudioDownloads int        `json:"total_audio_downloads"`
	TotalFileSize       int64      `json:"total_file_size_bytes"`
	SpotifyDownloads    int        `json:"spotify_downloads"`
	YouTubeDownloads    int        `json:"youtube_downloads"`
	FailedDownloads     int        `json:"failed_downloads"`
	LastDownloadDate    *time.Time `json:"last_download_date,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	LastErrorDate       *time.Time `json:"last_error_date,omitempty"`
	UniqueArtists       int        `json:"total_unique_artists"`
	UniqueAlbums        int        `json:"total_unique_albums"`
}

// TrackQuery filters a library search. Empty fields match everything.
type TrackQuery struct {
	Text    string
	Artist  string
	Album   string
	IsVideo *bool
	Limit   int
}
