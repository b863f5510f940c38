package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/ports/adapters/ffmpeg"
	"clipforge/internal/ports/adapters/llmagent"
	"clipforge/internal/ports/adapters/whisperapi"
	"clipforge/internal/ports/adapters/ytdlp"
)

// loadConfig resolves config + logger from the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.LogFormat = format
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// buildDeps constructs the real collaborator adapters.
func buildDeps(cfg *config.Config) pipeline.Deps {
	video := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
	return pipeline.Deps{
		Fetcher:  ytdlp.New(cfg.Tools.YtDlp, cfg.Tools.FFmpeg),
		Audio:    video,
		Speech:   whisperapi.New(cfg.Transcriber.APIKey, cfg.Transcriber.BaseURL, cfg.Transcriber.Model),
		Selector: llmagent.New(cfg.Selector.APIKey, cfg.Selector.BaseURL, cfg.Selector.Model),
		Renderer: video,
	}
}
