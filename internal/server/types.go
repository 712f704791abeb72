package server

import "github.com/jaki95/spotify-downloader/internal/domain"

// DownloadResponse acknowledges an accepted download request.
type DownloadResponse struct {
	Message string `json:"message"`
	JobID   string `json:"jobId"`
}

// LibraryResponse is the result of a library search.
type LibraryResponse struct {
	Tracks []domain.TrackRecord `json:"tracks"`
	Count  int                  `json:"count"`
}

// MessageResponse represents a generic message payload used for success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error payload used for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
