package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaki95/spotify-downloader/config"
	"github.com/jaki95/spotify-downloader/internal/job"
	"github.com/jaki95/spotify-downloader/internal/progress"
	"github.com/jaki95/spotify-downloader/internal/server"
	"github.com/jaki95/spotify-downloader/internal/service"
	flag "github.com/spf13/pflag"
)

func main() {
	port := flag.String("port", "", "Server port (overrides server.port)")
	configPath := flag.String("config", "./config/config.yaml", "Path to the YAML configuration")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor, err := service.NewProcessor(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create pipeline", "error", err)
		os.Exit(1)
	}
	defer processor.Close()

	pipelines := func(sink progress.Sink) server.Pipeline {
		return processor.Pipeline(sink)
	}
	srv := server.New(cfg, job.NewManager(), pipelines, processor.Library(), processor.Storage())

	slog.Info("Starting Spotify downloader API server", "port", cfg.Server.Port)
	if err := srv.Start(ctx, cfg.Server.Port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if os.IsNotExist(err) {
		slog.Warn("Config file not found, using defaults", "path", path)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}
