package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Media    MediaConfig    `yaml:"media"`
	Database DatabaseConfig `yaml:"database"`
}

type ServerConfig struct {
	Port   string        `yaml:"port"`
	JobTTL time.Duration `yaml:"job_ttl"`
}

type StorageConfig struct {
	// Type of storage: "local" or "gcs"
	Type string `yaml:"type"`

	// Local output root, also used as the staging area for gcs
	OutputDir string `yaml:"output_dir"`

	// GCS mirror options
	Bucket          string `yaml:"bucket"`
	ObjectPrefix    string `yaml:"object_prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

type CatalogConfig struct {
	Market     string `yaml:"market"`
	APIBaseURL string `yaml:"api_base_url"`
	TokenURL   string `yaml:"token_url"`
	PageSize   int    `yaml:"page_size"`

	// Read from SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET, never from the file
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
}

type MediaConfig struct {
	AudioFormat      string        `yaml:"audio_format"`
	AudioQuality     string        `yaml:"audio_quality"`
	VideoFormat      string        `yaml:"video_format"`
	MaxHeight        int           `yaml:"max_height"`
	SubtitleLanguage string        `yaml:"subtitle_language"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	InstallYtdlp     bool          `yaml:"install_ytdlp"`
}

type DatabaseConfig struct {
	// Backend: "sqlite" or "mongo"
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	URI     string `yaml:"uri"`
	Name    string `yaml:"name"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.applyDefaults()
	config.applyEnv()

	return config, nil
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	config.applyEnv()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.JobTTL == 0 {
		c.Server.JobTTL = 24 * time.Hour
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "downloaded_content"
	}

	if c.Catalog.APIBaseURL == "" {
		c.Catalog.APIBaseURL = "https://api.spotify.com/v1"
	}
	if c.Catalog.TokenURL == "" {
		c.Catalog.TokenURL = "https://accounts.spotify.com/api/token"
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = 50
	}

	if c.Media.AudioFormat == "" {
		c.Media.AudioFormat = "m4a"
	}
	if c.Media.AudioQuality == "" {
		c.Media.AudioQuality = "192K"
	}
	if c.Media.VideoFormat == "" {
		c.Media.VideoFormat = "mp4"
	}
	if c.Media.MaxHeight == 0 {
		c.Media.MaxHeight = 720
	}
	if c.Media.SubtitleLanguage == "" {
		c.Media.SubtitleLanguage = "en"
	}
	if c.Media.ProgressInterval == 0 {
		c.Media.ProgressInterval = 500 * time.Millisecond
	}

	if c.Database.Backend == "" {
		c.Database.Backend = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/spotify_downloads.db"
	}
	if c.Database.Name == "" {
		c.Database.Name = "spotify_downloads"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Catalog.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Catalog.ClientSecret = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Database.URI = v
	}
}

// Validate rejects configurations that cannot be wired.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "local":
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for gcs storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	switch c.Database.Backend {
	case "sqlite":
	case "mongo":
		if c.Database.URI == "" {
			return fmt.Errorf("database.uri or MONGODB_URI is required for mongo backend")
		}
	default:
		return fmt.Errorf("unsupported database backend: %s", c.Database.Backend)
	}

	if c.Media.MaxHeight <= 0 {
		return fmt.Errorf("media.max_height must be positive, got %d", c.Media.MaxHeight)
	}

	return nil
}
