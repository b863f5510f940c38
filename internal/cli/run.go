package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"clipforge/internal/pipeline"
	"clipforge/internal/ports"
	"clipforge/internal/ports/adapters/cropdetect"
	"clipforge/internal/ports/adapters/ffmpeg"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Process one video (local path or URL) in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, args[0])
		},
	}
	cmd.Flags().Bool("pin", false, "Reuse the deterministic run directory for this source")
	cmd.Flags().Bool("vertical", false, "Render 9:16 clips centered on the detected subject")
	return cmd
}

func runOnce(cmd *cobra.Command, input string) error {
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

	deps := buildDeps(cfg)
	if vertical, _ := cmd.Flags().GetBool("vertical"); vertical {
		deps.Renderer = &verticalRenderer{
			video:    ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
			analyzer: cropdetect.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
		}
	}

	pinnedDir := ""
	if pin, _ := cmd.Flags().GetBool("pin"); pin {
		abs, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		pinnedDir = pipeline.DeterministicRunDir(abs)
	}

	orch := pipeline.New(deps, cfg.OutputDir, log)
	rep := ports.ReporterFunc(func(stage string) {
		log.Info("pipeline", "stage", stage)
	})

	result, err := orch.Run(cmd.Context(), input, rep, pinnedDir)
	if err != nil {
		return err
	}

	if len(result.ClipPaths) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No clips found.")
		return nil
	}
	for _, p := range result.ClipPaths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// verticalRenderer centers a 9:16 crop on the subject before trimming. It
// composes the crop analyzer with the ffmpeg renderer behind the plain
// Renderer port so the orchestrator stays single-path.
type verticalRenderer struct {
	video    *ffmpeg.Adapter
	analyzer ports.CropAnalyzer
}

func (v *verticalRenderer) Trim(ctx context.Context, srcPath string, startSec, endSec float64, outPath string) error {
	center, err := v.analyzer.Analyze(ctx, srcPath, startSec, endSec)
	if err != nil {
		return err
	}
	return v.video.TrimVertical(ctx, srcPath, startSec, endSec, outPath, center)
}
