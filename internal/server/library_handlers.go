package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/subtitle"
)

var errOutsideOutput = errors.New("path is outside the output directory")

// searchLibrary godoc
// @Summary Search downloaded tracks
// @Tags Library
// @Produce json
// @Param q query string false "Free text matched against title, artist and album"
// @Param artist query string false "Artist filter"
// @Param album query string false "Album filter"
// @Param video query bool false "Only video or only audio downloads"
// @Param limit query int false "Maximum number of tracks"
// @Success 200 {object} LibraryResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/library [get]
func (s *Server) searchLibrary(c *gin.Context) {
	q := domain.TrackQuery{
		Text:   c.Query("q"),
		Artist: c.Query("artist"),
		Album:  c.Query("album"),
	}
	if v := c.Query("video"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			q.IsVideo = &parsed
		}
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}

	tracks, err := s.library.SearchTracks(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tracks == nil {
		tracks = []domain.TrackRecord{}
	}

	c.JSON(http.StatusOK, LibraryResponse{Tracks: tracks, Count: len(tracks)})
}

// getHistory godoc
// @Summary Aggregate download statistics
// @Tags Library
// @Produce json
// @Success 200 {object} domain.DownloadHistory
// @Failure 500 {object} ErrorResponse
// @Router /api/history [get]
func (s *Server) getHistory(c *gin.Context) {
	history, err := s.library.History(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

// getTrack godoc
// @Summary Stored record for a Spotify track
// @Tags Library
// @Produce json
// @Param id path string true "Spotify track ID"
// @Success 200 {object} domain.TrackRecord
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/tracks/{id} [get]
func (s *Server) getTrack(c *gin.Context) {
	record, err := s.library.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// playMedia godoc
// @Summary Stream a downloaded file
// @Description Local files honour Range requests.
// @Tags Library
// @Produce octet-stream
// @Param path query string true "Media path inside the output directory"
// @Success 200 {file} file
// @Success 206 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/play [get]
func (s *Server) playMedia(c *gin.Context) {
	raw := c.Query("path")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	path, err := s.resolveOutputPath(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if !s.files.FileExists(ctx, path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	reader, err := s.files.GetReader(ctx, path)
	if err != nil {
		slog.Error("Failed to open media file", "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", mediaType(path))
	if seeker, ok := reader.(io.ReadSeeker); ok {
		var modTime time.Time
		if stat, ok := reader.(interface{ Stat() (fs.FileInfo, error) }); ok {
			if info, err := stat.Stat(); err == nil {
				modTime = info.ModTime()
			}
		}
		http.ServeContent(c.Writer, c.Request, filepath.Base(path), modTime, seeker)
		return
	}

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		slog.Warn("Media stream interrupted", "path", path, "error", err)
	}
}

var mediaTypes = map[string]string{
	".m4a": "audio/mp4",
	".mp4": "video/mp4",
	".srt": "application/x-subrip",
	".vtt": "text/vtt",
}

func mediaType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// getSubtitles godoc
// @Summary Subtitles for a downloaded file as WebVTT
// @Tags Library
// @Produce text/vtt
// @Param path query string true "Media or subtitle path inside the output directory"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/subtitles [get]
func (s *Server) getSubtitles(c *gin.Context) {
	subPath, ok := s.subtitlePath(c)
	if !ok {
		return
	}

	data, err := s.readFile(c.Request.Context(), subPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subtitles not found"})
		return
	}

	content := string(data)
	if !strings.HasPrefix(strings.TrimSpace(strings.TrimPrefix(content, "\ufeff")), "WEBVTT") {
		content = subtitle.ToVTT(content)
	}
	c.Data(http.StatusOK, "text/vtt; charset=utf-8", []byte(content))
}

// getLyrics godoc
// @Summary Subtitle cues for a downloaded file
// @Tags Library
// @Produce json
// @Param path query string true "Media or subtitle path inside the output directory"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/lyrics [get]
func (s *Server) getLyrics(c *gin.Context) {
	subPath, ok := s.subtitlePath(c)
	if !ok {
		return
	}

	reader, err := s.files.GetReader(c.Request.Context(), subPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subtitles not found"})
		return
	}
	defer reader.Close()

	c.JSON(http.StatusOK, gin.H{"lyrics": subtitle.Parse(reader)})
}

func (s *Server) readFile(ctx context.Context, path string) ([]byte, error) {
	reader, err := s.files.GetReader(ctx, path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// subtitlePath resolves the path query to an existing subtitle file and
// writes the error response when it cannot.
func (s *Server) subtitlePath(c *gin.Context) (string, bool) {
	raw := c.Query("path")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return "", false
	}

	path, err := s.resolveOutputPath(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}

	ctx := c.Request.Context()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt":
		if !s.files.FileExists(ctx, path) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subtitles not found"})
			return "", false
		}
		return path, true
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	listing, err := s.files.ListFiles(ctx, filepath.Dir(path), stem)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subtitles not found"})
		return "", false
	}

	found, ok := subtitle.Pick(path, listing)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "subtitles not found"})
		return "", false
	}
	return found, true
}

// resolveOutputPath maps raw onto the output directory. Relative paths are
// taken relative to it and nothing may escape it.
func (s *Server) resolveOutputPath(raw string) (string, error) {
	root, err := filepath.Abs(s.cfg.Storage.OutputDir)
	if err != nil {
		return "", fmt.Errorf("invalid output directory: %w", err)
	}

	path := raw
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideOutput
	}
	return path, nil
}
