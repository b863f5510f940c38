package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/jobs"
	"clipforge/internal/pipeline"
	"clipforge/internal/ports/adapters/ffmpeg"
	"clipforge/internal/render"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the clipforge HTTP service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	store, err := jobs.Open(cfg.JobDBPath(), log)
	if err != nil {
		return err
	}
	defer store.Close()

	orch := pipeline.New(buildDeps(cfg), cfg.OutputDir, log)
	extender := render.NewStage(ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe), log)
	sweeper := jobs.NewSweeper(cfg.UploadDir(), cfg.OutputDir, cfg.Retention(), log)
	mgr := jobs.NewManager(store, orch, extender, sweeper, cfg.OutputDir, log)

	server := api.NewServer(mgr, store, cfg.OutputDir, cfg.UploadDir(), log)
	httpServer := &http.Server{
		Addr:              cfg.Bind,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("listening", "bind", cfg.Bind, "output_dir", cfg.OutputDir)
	return httpServer.ListenAndServe()
}
