package domain

import "errors"

var (
	// ErrInvalidReference is the only failure that aborts a batch.
	ErrInvalidReference = errors.New("invalid catalog reference")
	ErrInvalidFormat    = errors.New("invalid download format")

	ErrLocatorMiss    = errors.New("no media match found")
	ErrFetch          = errors.New("media fetch failed")
	ErrSubtitleMiss   = errors.New("no subtitles available")
	ErrArtworkFailure = errors.New("artwork embedding failed")
	ErrPersistence    = errors.New("metadata persistence failed")
)
