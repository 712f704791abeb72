package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/spotify-downloader/internal/catalog"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/job"
)

const eventPollInterval = 500 * time.Millisecond

// startDownload godoc
// @Summary Start a download batch
// @Description Resolves a catalog URL in the background and downloads every track it names.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param request body job.Request true "Catalog URL and format"
// @Success 202 {object} DownloadResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/download [post]
func (s *Server) startDownload(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	format, err := domain.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Format = string(format)

	ref, err := catalog.Classify(req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.URL = ref.URL

	jobStatus := s.jobManager.CreateJob(req)
	go s.runJob(jobStatus.ID, req)

	c.JSON(http.StatusAccepted, DownloadResponse{
		Message: "Download started",
		JobID:   jobStatus.ID,
	})
}

// getJobStatus godoc
// @Summary Get job status
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} job.Status
// @Failure 404 {object} ErrorResponse
// @Router /api/jobs/{id} [get]
func (s *Server) getJobStatus(c *gin.Context) {
	jobID := c.Param("id")

	jobStatus, err := s.jobManager.GetJob(jobID)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, jobStatus)
}

// listJobs godoc
// @Summary List jobs
// @Tags Jobs
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} job.Response
// @Router /api/jobs [get]
func (s *Server) listJobs(c *gin.Context) {
	page := 1
	pageSize := job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}

	c.JSON(http.StatusOK, s.jobManager.ListJobs(page, pageSize))
}

// streamJobEvents godoc
// @Summary Stream job events
// @Description Server-sent events carrying status_message, progress and download_complete payloads. The stream ends with an "end" event once the job finishes.
// @Tags Jobs
// @Produce text/event-stream
// @Param id path string true "Job ID"
// @Failure 404 {object} ErrorResponse
// @Router /api/jobs/{id}/events [get]
func (s *Server) streamJobEvents(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := s.jobManager.GetJob(jobID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	offset := 0
	c.Stream(func(w io.Writer) bool {
		events, done, err := s.jobManager.EventsSince(jobID, offset)
		if err != nil {
			return false
		}
		for _, event := range events {
			c.SSEvent(string(event.Kind), event)
		}
		offset += len(events)

		if done {
			status, err := s.jobManager.GetJob(jobID)
			if err == nil {
				c.SSEvent("end", gin.H{"status": status.Status, "error": status.Error})
			}
			return false
		}

		select {
		case <-c.Request.Context().Done():
			return false
		case <-time.After(eventPollInterval):
			return true
		}
	})
}

// health godoc
// @Summary Health check
// @Tags Utility
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func isNotFound(err error) bool {
	return errors.Is(err, job.ErrNotFound)
}
