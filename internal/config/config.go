// Package config loads clipforge settings from an optional TOML file with
// environment overrides, and validates required credentials before any
// pipeline work starts.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Transcriber configures the speech-to-text backend.
type Transcriber struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Selector configures the highlight-selection backend.
type Selector struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Tools configures the external binaries the adapters shell out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	YtDlp   string `toml:"ytdlp"`
}

// Config is the full application configuration.
type Config struct {
	OutputDir string `toml:"output_dir"`
	Bind      string `toml:"bind"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// RetentionHours is how long uploads and run directories are kept before
	// the background sweep removes them. Zero or negative disables sweeping.
	RetentionHours float64 `toml:"retention_hours"`

	Transcriber Transcriber `toml:"transcriber"`
	Selector    Selector    `toml:"selector"`
	Tools       Tools       `toml:"tools"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir:      "clipper_output",
		Bind:           "127.0.0.1:8000",
		LogLevel:       "info",
		RetentionHours: 1,
		Transcriber: Transcriber{
			Model: "whisper-1",
		},
		Selector: Selector{
			Model: "gpt-4o",
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			YtDlp:   "yt-dlp",
		},
	}
}

// Load reads the config file at path (missing file is fine when path is the
// default location), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// defaults + env only
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfEnv(&c.OutputDir, "CLIPFORGE_OUTPUT_DIR")
	setIfEnv(&c.Bind, "CLIPFORGE_BIND")
	setIfEnv(&c.LogLevel, "CLIPFORGE_LOG_LEVEL")
	setIfEnv(&c.LogFormat, "CLIPFORGE_LOG_FORMAT")
	setIfEnv(&c.Transcriber.APIKey, "OPENAI_API_KEY")
	setIfEnv(&c.Transcriber.BaseURL, "OPENAI_BASE_URL")
	setIfEnv(&c.Selector.APIKey, "SELECTOR_API_KEY")
	setIfEnv(&c.Selector.BaseURL, "SELECTOR_BASE_URL")
	setIfEnv(&c.Selector.Model, "SELECTOR_MODEL")
	if v := strings.TrimSpace(os.Getenv("CLIPFORGE_RETENTION_HOURS")); v != "" {
		if hours, err := strconv.ParseFloat(v, 64); err == nil {
			c.RetentionHours = hours
		}
	}

	// The selection backend defaults to the transcription credential when it
	// points at the same provider.
	if c.Selector.APIKey == "" {
		c.Selector.APIKey = c.Transcriber.APIKey
	}
}

func setIfEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate fails fast before any stage starts, naming the missing credential.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output_dir is empty")
	}
	if strings.TrimSpace(c.Transcriber.APIKey) == "" {
		return errors.New("transcriber API key is required (set OPENAI_API_KEY or transcriber.api_key)")
	}
	if strings.TrimSpace(c.Selector.APIKey) == "" {
		return errors.New("selector API key is required (set SELECTOR_API_KEY or selector.api_key)")
	}
	return nil
}

// Retention returns the artifact retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionHours * float64(time.Hour))
}

// UploadDir is where the HTTP layer lands uploaded source files.
func (c *Config) UploadDir() string {
	return filepath.Join(c.OutputDir, "uploads")
}

// JobDBPath is the job registry database location.
func (c *Config) JobDBPath() string {
	return filepath.Join(c.OutputDir, "jobs.db")
}

// EnsureDirectories creates the output tree.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.OutputDir, c.UploadDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}
