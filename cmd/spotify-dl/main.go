package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/orchestrator"
	"github.com/jaki95/spotify-downloader/internal/progress"
	"github.com/jaki95/spotify-downloader/internal/recorder"
	"github.com/jaki95/spotify-downloader/internal/repository"
	"github.com/jaki95/spotify-downloader/internal/service"
	"github.com/k0kubun/go-ansi"
	flag "github.com/spf13/pflag"
)

func main() {
	url := flag.StringP("url", "u", "", "Spotify track, album or playlist URL (required)")
	format := flag.StringP("format", "f", string(domain.FormatAudio), "Download format: audio or video")
	configPath := flag.StringP("config", "c", "./config/config.yaml", "Path to the YAML configuration")
	showDB := flag.Bool("show-db", false, "Print the downloaded tracks and history, then exit")
	search := flag.String("search", "", "With --show-db, only list tracks matching this text")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so they do not tear the progress bar.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *showDB {
		if err := showDatabase(ctx, cfg, *search); err != nil {
			slog.Error("Failed to display database contents", "error", err)
			os.Exit(1)
		}
		return
	}

	if *url == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := download(ctx, cfg, *url, *format); err != nil {
		os.Exit(1)
	}
}

type pipeline interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.BatchResult, error)
}

func download(ctx context.Context, cfg *config.Config, url, format string) error {
	processor, err := service.NewProcessor(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create pipeline", "error", err)
		return err
	}
	defer processor.Close()

	console := newConsoleSink(ansi.NewAnsiStdout())
	newPipeline := func(sink progress.Sink) pipeline {
		return processor.Pipeline(sink)
	}
	return runBatch(ctx, newPipeline, console, orchestrator.Request{URL: url, Format: format})
}

// runBatch runs one batch through a tracker that feeds the console and keeps
// the last error for the exit summary.
func runBatch(ctx context.Context, newPipeline func(progress.Sink) pipeline, console progress.Sink, req orchestrator.Request) error {
	tracker := progress.NewTracker()
	listener := console.Emit
	tracker.AddListener(listener)
	defer tracker.RemoveListener(listener)

	batch, err := newPipeline(tracker).Run(ctx, req)
	if err != nil {
		if tracker.LastError() == "" {
			tracker.Status(progress.LevelError, err.Error())
		}
		return err
	}
	if ctx.Err() != nil {
		tracker.Status(progress.LevelWarning, "Download interrupted")
	}
	if batch.Succeeded() == 0 {
		if last := tracker.LastError(); last != "" {
			return fmt.Errorf("no tracks were downloaded: %s", last)
		}
		return fmt.Errorf("no tracks were downloaded")
	}

	slog.Info("Download finished",
		"succeeded", batch.Succeeded(),
		"failed", batch.Failed(),
		"last", batch.LastFilePath(),
		"status", tracker.CurrentState().Message,
	)
	return nil
}

func showDatabase(ctx context.Context, cfg *config.Config, text string) error {
	repo, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	library := recorder.New(repo, cfg.Media.AudioQuality)
	tracks, err := library.SearchTracks(ctx, domain.TrackQuery{Text: text})
	if err != nil {
		return err
	}
	history, err := library.History(ctx)
	if err != nil {
		return err
	}

	out := ansi.NewAnsiStdout()
	fmt.Fprintln(out, "Downloaded Tracks:")
	printTracks(out, tracks)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Download History:")
	printHistory(out, history)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if os.IsNotExist(err) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}
