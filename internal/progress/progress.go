package progress

import (
	"encoding/json"
	"reflect"
	"sync"
	"time"
)

// Kind names the event channel a consumer subscribes to.
type Kind string

const (
	KindStatus   Kind = "status_message"
	KindProgress Kind = "progress"
	KindComplete Kind = "download_complete"
)

// Level is the severity attached to a status message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event represents one emitted pipeline event
type Event struct {
	Kind         Kind          `json:"kind"`
	Level        Level         `json:"level,omitempty"`
	Message      string        `json:"message,omitempty"`
	Progress     float64       `json:"progress"`
	Status       string        `json:"status,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	TrackDetails *TrackDetails `json:"trackDetails,omitempty"`
	Completion   *Completion   `json:"completion,omitempty"`
}

// TrackDetails contains information about the current track being processed
type TrackDetails struct {
	TrackNumber  int    `json:"trackNumber"`
	TotalTracks  int    `json:"totalTracks"`
	CurrentTrack string `json:"currentTrack"`
}

// Completion is the payload of a download_complete event.
type Completion struct {
	Title             string `json:"title"`
	Artist            string `json:"artist"`
	Format            string `json:"format"`
	FilePath          string `json:"file_path"`
	Thumbnail         string `json:"thumbnail,omitempty"`
	PlaylistName      string `json:"playlist_name,omitempty"`
	PlaylistThumbnail string `json:"playlist_thumbnail,omitempty"`
	AlbumName         string `json:"album_name,omitempty"`
	AlbumThumbnail    string `json:"album_thumbnail,omitempty"`
}

// Sink receives pipeline events. Implementations must be safe for use from
// the goroutine running the batch.
type Sink interface {
	Emit(Event)
}

// Tracker is a Sink that fans events out to listeners and remembers the
// latest state.
type Tracker struct {
	mu           sync.RWMutex
	progress     float64
	message      string
	trackDetails *TrackDetails
	lastError    string
	listeners    []func(Event)
}

// NewTracker creates a new Tracker instance
func NewTracker() *Tracker {
	return &Tracker{
		listeners: make([]func(Event), 0),
	}
}

// AddListener adds a new event listener
func (t *Tracker) AddListener(listener func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

// RemoveListener removes an event listener
func (t *Tracker) RemoveListener(listener func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	listenerPtr := reflect.ValueOf(listener).Pointer()
	for i := range t.listeners {
		if reflect.ValueOf(t.listeners[i]).Pointer() == listenerPtr {
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			break
		}
	}
}

// Emit records the event and notifies all listeners.
func (t *Tracker) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	t.mu.Lock()
	switch event.Kind {
	case KindProgress:
		t.progress = event.Progress
	case KindStatus:
		t.message = event.Message
		if event.Level == LevelError {
			t.lastError = event.Message
		}
	}
	if event.TrackDetails != nil {
		t.trackDetails = event.TrackDetails
	}
	listeners := make([]func(Event), len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Status emits a status_message event.
func (t *Tracker) Status(level Level, message string) {
	t.Emit(StatusEvent(level, message))
}

// CurrentState returns a snapshot of the latest progress state
func (t *Tracker) CurrentState() Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Event{
		Kind:         KindStatus,
		Progress:     t.progress,
		Message:      t.message,
		Timestamp:    time.Now(),
		TrackDetails: t.trackDetails,
	}
}

// LastError returns the most recent error message, if any.
func (t *Tracker) LastError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastError
}

// StatusEvent builds a status_message event.
func StatusEvent(level Level, message string) Event {
	return Event{Kind: KindStatus, Level: level, Message: message, Timestamp: time.Now()}
}

// ProgressEvent builds a progress event with the percentage clamped to
// [0, 100].
func ProgressEvent(percent float64) Event {
	return Event{
		Kind:      KindProgress,
		Progress:  Clamp(percent),
		Status:    "downloading",
		Timestamp: time.Now(),
	}
}

// Clamp bounds a percentage to [0, 100].
func Clamp(percent float64) float64 {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// MarshalJSON implements json.Marshaler for Event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Alias:     (*Alias)(&e),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, aux.Timestamp)
	if err != nil {
		return err
	}
	e.Timestamp = t
	return nil
}
