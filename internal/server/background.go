package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaki95/spotify-downloader/internal/job"
	"github.com/jaki95/spotify-downloader/internal/orchestrator"
	"github.com/jaki95/spotify-downloader/internal/progress"
)

const (
	jobTimeout      = 2 * time.Hour
	cleanupInterval = 10 * time.Minute
)

// runJob executes one download batch and moves the job to a terminal state.
func (s *Server) runJob(jobID string, req job.Request) {
	slog.Info("Starting background processing", "jobId", jobID, "url", req.URL, "format", req.Format)

	if err := s.jobManager.Start(jobID); err != nil {
		slog.Error("Job failed to start", "jobId", jobID, "error", err)
		return
	}

	// Jobs outlive the request that created them.
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Job panicked", "jobId", jobID, "panic", r)
			s.jobManager.Fail(jobID, fmt.Errorf("internal error: %v", r))
		}
	}()

	sink := s.jobManager.Sink(jobID)
	sink.Emit(progress.StatusEvent(progress.LevelInfo, "Starting download..."))

	batch, err := s.newPipeline(sink).Run(ctx, orchestrator.Request{URL: req.URL, Format: req.Format})
	if err != nil {
		slog.Error("Job failed", "jobId", jobID, "error", err)
		s.jobManager.Fail(jobID, err)
		return
	}

	if err := s.jobManager.Complete(jobID, batch.Outcomes, batch.Files()); err != nil {
		slog.Error("Failed to complete job", "jobId", jobID, "error", err)
		return
	}
	slog.Info("Job completed successfully", "jobId", jobID, "succeeded", batch.Succeeded(), "failed", batch.Failed())
}

// StartCleanupWorker prunes finished jobs older than the configured TTL
// until ctx is cancelled.
func (s *Server) StartCleanupWorker(ctx context.Context) {
	ttl := s.cfg.Server.JobTTL
	if ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.jobManager.Prune(ttl); n > 0 {
					slog.Info("Pruned finished jobs", "count", n)
				}
			}
		}
	}()
}
