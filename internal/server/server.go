package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/spotify-downloader/config"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/job"
	"github.com/jaki95/spotify-downloader/internal/orchestrator"
	"github.com/jaki95/spotify-downloader/internal/progress"
	"github.com/rs/cors"
)

// Pipeline runs one download batch.
type Pipeline interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.BatchResult, error)
}

// PipelineFactory builds a pipeline that reports to sink.
type PipelineFactory func(sink progress.Sink) Pipeline

// Library is the read side of the track repository.
type Library interface {
	SearchTracks(ctx context.Context, q domain.TrackQuery) ([]domain.TrackRecord, error)
	History(ctx context.Context) (*domain.DownloadHistory, error)
	// Lookup returns nil when no record exists for externalID.
	Lookup(ctx context.Context, externalID string) (*domain.TrackRecord, error)
}

// Files reads downloaded files back out of storage.
type Files interface {
	GetReader(ctx context.Context, path string) (io.ReadCloser, error)
	FileExists(ctx context.Context, path string) bool
	ListFiles(ctx context.Context, dir string, pattern string) ([]string, error)
}

// Server handles HTTP requests for the downloader
type Server struct {
	cfg         *config.Config
	router      *gin.Engine
	jobManager  *job.Manager
	newPipeline PipelineFactory
	library     Library
	files       Files
	httpServer  *http.Server
}

// New creates a new HTTP server instance
func New(cfg *config.Config, jobs *job.Manager, pipelines PipelineFactory, library Library, files Files) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		router:      router,
		jobManager:  jobs,
		newPipeline: pipelines,
		library:     library,
		files:       files,
	}
	s.setupRoutes(router)
	return s
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		api.POST("/download", s.startDownload)
		api.GET("/jobs", s.listJobs)
		api.GET("/jobs/:id", s.getJobStatus)
		api.GET("/jobs/:id/events", s.streamJobEvents)
		api.GET("/library", s.searchLibrary)
		api.GET("/tracks/:id", s.getTrack)
		api.GET("/history", s.getHistory)
		api.GET("/play", s.playMedia)
		api.GET("/subtitles", s.getSubtitles)
		api.GET("/lyrics", s.getLyrics)
	}
}

// Handler returns the router wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Range"},
		ExposedHeaders: []string{"Content-Range", "Accept-Ranges", "Content-Length"},
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port string) error {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.StartCleanupWorker(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
