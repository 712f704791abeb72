package job

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/progress"
)

// Manager handles job management
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*Status
}

// NewManager creates a new job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Status),
	}
}

// CreateJob registers a pending job for req
func (m *Manager) CreateJob(req Request) *Status {
	job := &Status{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Message:   "Job created",
		URL:       req.URL,
		Format:    req.Format,
		Events:    []progress.Event{},
		StartTime: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job.snapshot()
}

// GetJob returns a copy of the job's current state
func (m *Manager) GetJob(jobID string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return job.snapshot(), nil
}

// Start moves a pending job to processing
func (m *Manager) Start(jobID string) error {
	return m.update(jobID, func(job *Status) error {
		if job.Status != StatusPending {
			return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
		}
		job.Status = StatusProcessing
		job.Message = "Starting download..."
		return nil
	})
}

// Complete stores the batch outcomes and marks the job completed
func (m *Manager) Complete(jobID string, outcomes []domain.Outcome, results []string) error {
	return m.update(jobID, func(job *Status) error {
		end := time.Now()
		job.Status = StatusCompleted
		job.Progress = 100
		job.Outcomes = outcomes
		job.Results = results
		job.EndTime = &end
		return nil
	})
}

// Fail marks the job failed with err
func (m *Manager) Fail(jobID string, err error) error {
	return m.update(jobID, func(job *Status) error {
		end := time.Now()
		job.Status = StatusFailed
		job.Error = err.Error()
		job.Message = "Download failed"
		job.EndTime = &end
		return nil
	})
}

// Sink returns the event sink that feeds the job's event log
func (m *Manager) Sink(jobID string) progress.Sink {
	return &jobSink{manager: m, jobID: jobID}
}

// EventsSince returns the events after the first offset ones and whether
// the job has finished.
func (m *Manager) EventsSince(jobID string, offset int) ([]progress.Event, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if offset < 0 || offset > len(job.Events) {
		offset = len(job.Events)
	}

	events := make([]progress.Event, len(job.Events)-offset)
	copy(events, job.Events[offset:])
	return events, job.Finished(), nil
}

// ListJobs lists all jobs, newest first, with pagination
func (m *Manager) ListJobs(page, pageSize int) *Response {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	m.mu.RLock()
	jobs := make([]*Status, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})

	start := (page - 1) * pageSize
	end := start + pageSize

	if start >= len(jobs) {
		return &Response{
			Jobs:       []*Status{},
			Page:       page,
			PageSize:   pageSize,
			TotalJobs:  len(jobs),
			TotalPages: (len(jobs) + pageSize - 1) / pageSize,
		}
	}

	if end > len(jobs) {
		end = len(jobs)
	}

	return &Response{
		Jobs:       jobs[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalJobs:  len(jobs),
		TotalPages: (len(jobs) + pageSize - 1) / pageSize,
	}
}

// Prune removes finished jobs that ended more than ttl ago
func (m *Manager) Prune(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, job := range m.jobs {
		if job.Finished() && job.EndTime != nil && job.EndTime.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) update(jobID string, fn func(*Status) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return fn(job)
}

func (s *Status) snapshot() *Status {
	c := *s
	c.Events = append([]progress.Event(nil), s.Events...)
	c.Outcomes = append([]domain.Outcome(nil), s.Outcomes...)
	c.Results = append([]string(nil), s.Results...)
	if c.Events == nil {
		c.Events = []progress.Event{}
	}
	return &c
}

type jobSink struct {
	manager *Manager
	jobID   string
}

// Emit appends the event to the job and folds it into the job's progress.
// Per-track percentages are scaled to the whole batch.
func (s *jobSink) Emit(event progress.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.manager.update(s.jobID, func(job *Status) error {
		job.Events = append(job.Events, event)
		if event.TrackDetails != nil {
			job.track = event.TrackDetails
		}

		switch event.Kind {
		case progress.KindStatus:
			job.Message = event.Message
		case progress.KindProgress:
			job.Progress = batchProgress(job.track, event.Progress)
		}
		return nil
	})
}

func batchProgress(track *progress.TrackDetails, percent float64) float64 {
	if track == nil || track.TotalTracks <= 1 || track.TrackNumber < 1 {
		return progress.Clamp(percent)
	}
	done := float64(track.TrackNumber-1) + progress.Clamp(percent)/100
	return progress.Clamp(done / float64(track.TotalTracks) * 100)
}
