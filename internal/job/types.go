package job

import (
	"time"

	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/progress"
)

// Status represents the current state of a download job
type Status struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Progress  float64          `json:"progress"`
	Message   string           `json:"message"`
	Error     string           `json:"error,omitempty"`
	URL       string           `json:"url"`
	Format    string           `json:"format"`
	Results   []string         `json:"results,omitempty"`
	Outcomes  []domain.Outcome `json:"outcomes,omitempty"`
	Events    []progress.Event `json:"events"`
	StartTime time.Time        `json:"startTime"`
	EndTime   *time.Time       `json:"endTime,omitempty"`

	track *progress.TrackDetails
}

// Finished reports whether the job reached a terminal state.
func (s *Status) Finished() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Request represents the request body for starting a download
type Request struct {
	URL    string `json:"url" binding:"required"`
	Format string `json:"format"`
}

// Response represents the response for job status
type Response struct {
	Jobs       []*Status `json:"jobs"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalJobs  int       `json:"totalJobs"`
	TotalPages int       `json:"totalPages"`
}

// Constants for job status
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)
