package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jaki95/spotify-downloader/internal/artwork"
	"github.com/jaki95/spotify-downloader/internal/catalog"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/fetcher"
	"github.com/jaki95/spotify-downloader/internal/locator"
	"github.com/jaki95/spotify-downloader/internal/progress"
)

// State is the orchestrator's position in a batch.
type State string

const (
	StateIdle       State = "idle"
	StateResolving  State = "resolving"
	StateLocating   State = "locating"
	StateFetching   State = "fetching"
	StateEmbedding  State = "embedding"
	StateSubtitling State = "subtitling"
	StateRecording  State = "recording"
	StateDone       State = "done"
)

type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*catalog.Resolution, error)
}

type Locator interface {
	Locate(ctx context.Context, title, contributor string) (*domain.MediaRef, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, ref *domain.MediaRef, destBase string, format domain.Format, onProgress fetcher.ProgressFunc) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, mediaPath, artworkURL string, tags artwork.Tags) bool
}

type SubtitleAcquirer interface {
	Acquire(ctx context.Context, ref *domain.MediaRef, destBase, lang string, allowAuto bool) bool
}

type Recorder interface {
	Record(ctx context.Context, desc *domain.TrackDescriptor, outcome *domain.Outcome, format domain.Format) (string, error)
	RecordFailure(ctx context.Context, cause error) error
}

// Placement is the part of storage the pipeline writes through.
type Placement interface {
	TrackBase(collection, title, contributor string) (string, error)
	Publish(ctx context.Context, localPath string) (string, error)
}

// Deps are the collaborators of one orchestrator. Sink, Session and
// Embedder may be nil.
type Deps struct {
	Resolver         Resolver
	Locator          Locator
	Fetcher          Fetcher
	Embedder         Embedder
	Subtitles        SubtitleAcquirer
	Recorder         Recorder
	Storage          Placement
	Session          catalog.Session
	Sink             progress.Sink
	SubtitleLanguage string
}

// Request starts one batch.
type Request struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// Orchestrator runs batches one track at a time.
type Orchestrator struct {
	deps  Deps
	state State
}

func New(deps Deps) *Orchestrator {
	if deps.Sink == nil {
		deps.Sink = progress.Discard
	}
	if deps.Session == nil {
		deps.Session = noSession{}
	}
	if deps.SubtitleLanguage == "" {
		deps.SubtitleLanguage = "en"
	}
	return &Orchestrator{deps: deps, state: StateIdle}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run resolves req.URL and downloads every track it names. Only an invalid
// reference or format fails the batch. Per-track failures are reported in
// the returned outcomes and the event stream.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*BatchResult, error) {
	format, err := domain.ParseFormat(req.Format)
	if err != nil {
		o.status(progress.LevelError, fmt.Sprintf("Error during download: %v", err))
		return nil, err
	}

	release := o.deps.Session.Acquire()
	defer release()
	defer o.setState(StateDone)

	o.setState(StateResolving)
	res, err := o.deps.Resolver.Resolve(ctx, req.URL)
	if err != nil {
		o.status(progress.LevelError, fmt.Sprintf("Error during download: %v", err))
		return nil, err
	}

	kind := res.Reference.Kind
	o.status(progress.LevelInfo, fmt.Sprintf("Starting %s download of %s: %s", format, kind, res.CollectionName))
	if res.Partial {
		o.status(progress.LevelWarning, fmt.Sprintf("Only %d tracks could be listed: %v", len(res.Tracks), res.PartialErr))
	}

	batch := &BatchResult{
		Kind:           kind,
		CollectionName: res.CollectionName,
		Format:         format,
		Partial:        res.Partial,
		Outcomes:       make([]domain.Outcome, 0, len(res.Tracks)),
	}

	total := len(res.Tracks)
	for i, desc := range res.Tracks {
		if kind != domain.KindTrack {
			o.deps.Sink.Emit(progress.Event{
				Kind:    progress.KindStatus,
				Level:   progress.LevelInfo,
				Message: fmt.Sprintf("Downloading %d/%d: %s by %s", i+1, total, desc.Title, desc.ContributorLine()),
				TrackDetails: &progress.TrackDetails{
					TrackNumber:  i + 1,
					TotalTracks:  total,
					CurrentTrack: desc.Title,
				},
			})
		}

		outcome := o.processTrack(ctx, i+1, res, desc, format)
		batch.Outcomes = append(batch.Outcomes, outcome)

		if kind == domain.KindTrack {
			break
		}
	}

	if batch.Succeeded() > 0 {
		o.status(progress.LevelSuccess, "Download completed! Check the 'downloaded_content' folder.")
	} else {
		o.status(progress.LevelError, "No tracks were downloaded")
	}

	slog.Info("Batch finished",
		"url", req.URL,
		"kind", kind,
		"tracks", total,
		"succeeded", batch.Succeeded(),
		"failed", batch.Failed(),
	)
	return batch, nil
}

func (o *Orchestrator) processTrack(ctx context.Context, index int, res *catalog.Resolution, desc *domain.TrackDescriptor, format domain.Format) domain.Outcome {
	outcome := domain.Outcome{Index: index, Descriptor: desc}
	contributor := desc.PrimaryContributor()

	o.setState(StateLocating)
	o.status(progress.LevelInfo, "Searching YouTube for: "+locator.Query(desc.Title, contributor))
	ref, err := o.deps.Locator.Locate(ctx, desc.Title, contributor)
	if err != nil {
		o.status(progress.LevelError, "No YouTube results found for: "+locator.Query(desc.Title, contributor))
		return o.fail(ctx, outcome, domain.OutcomeLocatorMiss, err)
	}
	outcome.Media = ref
	o.status(progress.LevelInfo, "Found YouTube URL: "+ref.URL)

	o.setState(StateFetching)
	name := domain.TrackFileBase(desc.Title, contributor)
	destBase, err := o.deps.Storage.TrackBase(res.CollectionName, desc.Title, contributor)
	if err == nil {
		outcome.FilePath, err = o.deps.Fetcher.Fetch(ctx, ref, destBase, format, func(percent float64) {
			o.deps.Sink.Emit(progress.ProgressEvent(percent))
		})
	}
	if err != nil {
		o.status(progress.LevelError, fmt.Sprintf("Error during download: %v", err))
		o.status(progress.LevelError, "Failed to download: "+name)
		outcome.FilePath = ""
		return o.fail(ctx, outcome, domain.OutcomeFetchFailed, err)
	}
	if info, err := os.Stat(outcome.FilePath); err == nil {
		outcome.FileSize = info.Size()
	}

	if !format.IsVideo() && o.deps.Embedder != nil {
		o.setState(StateEmbedding)
		if o.deps.Embedder.Embed(ctx, outcome.FilePath, desc.ArtworkURL(), tagsFor(desc)) {
			outcome.HasArtwork = true
			o.status(progress.LevelInfo, "Added album artwork")
		} else if desc.ArtworkURL() != "" {
			o.warn(&outcome, fmt.Sprintf("Error setting thumbnail: %v", domain.ErrArtworkFailure))
		}
	}

	o.setState(StateSubtitling)
	if o.deps.Subtitles != nil && o.deps.Subtitles.Acquire(ctx, ref, destBase, o.deps.SubtitleLanguage, true) {
		outcome.HasSubtitles = true
		outcome.SubtitlePath = destBase + ".srt"
		o.status(progress.LevelInfo, "Subtitles saved")
	} else {
		slog.Debug("Continuing without subtitles", "track", name, "error", domain.ErrSubtitleMiss)
		o.status(progress.LevelWarning, "No subtitles available for: "+name)
	}

	outcome.Status = domain.OutcomeSucceeded

	o.setState(StateRecording)
	id, err := o.deps.Recorder.Record(ctx, desc, &outcome, format)
	if err != nil {
		o.warn(&outcome, "Download completed but failed to process metadata")
	} else {
		outcome.RecordID = id
		o.status(progress.LevelInfo, "Saved track metadata")
	}

	o.publish(ctx, &outcome)

	o.status(progress.LevelSuccess, "Successfully downloaded: "+name)
	slog.Info("Track downloaded", "index", outcome.Index, "path", outcome.FilePath, "size", humanize.Bytes(uint64(outcome.FileSize)))
	o.deps.Sink.Emit(progress.Event{
		Kind:       progress.KindComplete,
		Level:      progress.LevelSuccess,
		Completion: completionFor(res, desc, &outcome, format),
	})
	return outcome
}

func (o *Orchestrator) publish(ctx context.Context, outcome *domain.Outcome) {
	published, err := o.deps.Storage.Publish(ctx, outcome.FilePath)
	if err != nil {
		slog.Warn("Failed to publish file", "path", outcome.FilePath, "error", err)
		outcome.Warnings = append(outcome.Warnings, err.Error())
		return
	}
	outcome.Published = published

	if outcome.HasSubtitles {
		if _, err := o.deps.Storage.Publish(ctx, outcome.SubtitlePath); err != nil {
			slog.Warn("Failed to publish subtitles", "path", outcome.SubtitlePath, "error", err)
		}
	}
}

func (o *Orchestrator) fail(ctx context.Context, outcome domain.Outcome, status domain.OutcomeStatus, err error) domain.Outcome {
	outcome.Status = status
	outcome.Error = err.Error()
	slog.Warn("Track failed", "index", outcome.Index, "title", outcome.Descriptor.Title, "status", status, "error", err)

	if recErr := o.deps.Recorder.RecordFailure(ctx, err); recErr != nil {
		slog.Debug("Failure not counted", "error", recErr)
	}
	return outcome
}

func (o *Orchestrator) warn(outcome *domain.Outcome, msg string) {
	outcome.Warnings = append(outcome.Warnings, msg)
	o.status(progress.LevelWarning, msg)
}

func (o *Orchestrator) status(level progress.Level, msg string) {
	o.deps.Sink.Emit(progress.StatusEvent(level, msg))
}

func (o *Orchestrator) setState(s State) {
	slog.Debug("Pipeline state", "from", o.state, "to", s)
	o.state = s
}

func tagsFor(desc *domain.TrackDescriptor) artwork.Tags {
	return artwork.Tags{
		Title:       desc.Title,
		Artist:      desc.ContributorLine(),
		Album:       desc.CollectionName,
		ReleaseDate: desc.ReleaseDate,
		TrackNumber: desc.TrackNumber,
		TrackTotal:  desc.CollectionTracks,
		DiscNumber:  desc.DiscNumber,
		Explicit:    desc.Explicit,
	}
}

func completionFor(res *catalog.Resolution, desc *domain.TrackDescriptor, outcome *domain.Outcome, format domain.Format) *progress.Completion {
	c := &progress.Completion{
		Title:     desc.Title,
		Artist:    desc.ContributorLine(),
		Format:    string(format),
		FilePath:  outcome.FilePath,
		Thumbnail: desc.ArtworkURL(),
	}
	switch res.Reference.Kind {
	case domain.KindPlaylist:
		c.PlaylistName = res.CollectionName
		c.PlaylistThumbnail = res.ArtworkURL()
	case domain.KindAlbum:
		c.AlbumName = res.CollectionName
		c.AlbumThumbnail = res.ArtworkURL()
	}
	return c
}

type noSession struct{}

func (noSession) Acquire() func() { return func() {} }
