package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/jaki95/spotify-downloader/internal/artwork"
	"github.com/jaki95/spotify-downloader/internal/catalog"
	"github.com/jaki95/spotify-downloader/internal/downloader"
	"github.com/jaki95/spotify-downloader/internal/fetcher"
	"github.com/jaki95/spotify-downloader/internal/locator"
	"github.com/jaki95/spotify-downloader/internal/orchestrator"
	"github.com/jaki95/spotify-downloader/internal/progress"
	"github.com/jaki95/spotify-downloader/internal/recorder"
	"github.com/jaki95/spotify-downloader/internal/repository"
	"github.com/jaki95/spotify-downloader/internal/storage"
	"github.com/jaki95/spotify-downloader/internal/subtitle"
)

// Processor owns the long-lived collaborators of the download pipeline and
// hands out one orchestrator per batch.
type Processor struct {
	cfg *config.Config

	spotify   *catalog.SpotifyClient
	resolver  *catalog.Resolver
	locator   *locator.Locator
	fetcher   *fetcher.Fetcher
	embedder  *artwork.Embedder
	subtitles *subtitle.Acquirer
	recorder  *recorder.Recorder
	repo      repository.Repository
	storage   storage.Storage
}

// NewProcessor wires every collaborator from cfg. The caller must Close it.
func NewProcessor(ctx context.Context, cfg *config.Config) (*Processor, error) {
	spotify, err := catalog.NewSpotifyClient(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	if cfg.Media.InstallYtdlp {
		if err := downloader.Install(ctx); err != nil {
			return nil, err
		}
	}

	repo, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open track repository: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	ytdlp := downloader.NewYtDlp(cfg.Media)

	slog.Info("Pipeline ready",
		"storage", cfg.Storage.Type,
		"output", store.OutputDir(),
		"database", cfg.Database.Backend,
	)

	return &Processor{
		cfg:       cfg,
		spotify:   spotify,
		resolver:  catalog.NewResolver(spotify, catalog.NewPageScraper()),
		locator:   locator.New(ytdlp),
		fetcher:   fetcher.New(ytdlp, cfg.Media),
		embedder:  artwork.NewEmbedder(),
		subtitles: subtitle.NewAcquirer(ytdlp),
		recorder:  recorder.New(repo, cfg.Media.AudioQuality),
		repo:      repo,
		storage:   store,
	}, nil
}

// Pipeline returns a fresh orchestrator reporting to sink.
func (p *Processor) Pipeline(sink progress.Sink) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Deps{
		Resolver:         p.resolver,
		Locator:          p.locator,
		Fetcher:          p.fetcher,
		Embedder:         p.embedder,
		Subtitles:        p.subtitles,
		Recorder:         p.recorder,
		Storage:          p.storage,
		Session:          p.spotify,
		Sink:             sink,
		SubtitleLanguage: p.cfg.Media.SubtitleLanguage,
	})
}

// Library exposes the recorder for library queries.
func (p *Processor) Library() *recorder.Recorder {
	return p.recorder
}

// Storage exposes the file store downloads are placed in.
func (p *Processor) Storage() storage.Storage {
	return p.storage
}

// Close releases the catalog session, storage and repository.
func (p *Processor) Close() error {
	p.spotify.Close()

	var firstErr error
	if err := p.storage.Close(); err != nil {
		firstErr = err
	}
	if err := p.repo.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
