package domain

// OutcomeStatus is the terminal state of one track's pipeline pass.
type OutcomeStatus string

const (
	OutcomeSucceeded   OutcomeStatus = "succeeded"
	OutcomeLocatorMiss OutcomeStatus = "locator_miss"
	OutcomeFetchFailed OutcomeStatus = "fetch_failed"
	OutcomeSkipped     OutcomeStatus = "skipped"
)

// Outcome is the result of one track's pass through the pipeline.
type Outcome struct {
	Index        int              `json:"index"`
	Descriptor   *TrackDescriptor `json:"descriptor"`
	Status       OutcomeStatus    `json:"status"`
	Media        *MediaRef        `json:"media,omitempty"`
	FilePath     string           `json:"file_path,omitempty"`
	FileSize     int64            `json:"file_size,omitempty"`
	HasSubtitles bool             `json:"has_subtitles"`
	SubtitlePath string           `json:"subtitle_path,omitempty"`
	HasArtwork   bool             `json:"has_artwork"`
	RecordID     string           `json:"record_id,omitempty"`
	Published    string           `json:"published,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Succeeded reports whether a file was produced for the track.
func (o *Outcome) Succeeded() bool {
	return o.Status == OutcomeSucceeded
}
