package jobs

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sweeper prunes expired artifacts: uploaded source files (and their run
// trees) under the upload directory, and ad-hoc run_* directories under the
// output directory. Entries younger than maxAge are left alone.
type Sweeper struct {
	uploadDir string
	outputDir string
	maxAge    time.Duration
	log       *slog.Logger
}

func NewSweeper(uploadDir, outputDir string, maxAge time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{uploadDir: uploadDir, outputDir: outputDir, maxAge: maxAge, log: log}
}

// Sweep removes everything past the retention window. Failures are logged
// and swallowed; retention is best-effort housekeeping and must never fail a
// job submission.
func (s *Sweeper) Sweep() {
	if s == nil || s.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.maxAge)

	s.sweepDir(s.uploadDir, cutoff, func(entry os.DirEntry) bool {
		// uploads plus the _data run trees rendered next to them
		return !entry.IsDir() || strings.HasSuffix(entry.Name(), "_data")
	})
	s.sweepDir(s.outputDir, cutoff, func(entry os.DirEntry) bool {
		return entry.IsDir() && strings.HasPrefix(entry.Name(), "run_")
	})
}

func (s *Sweeper) sweepDir(dir string, cutoff time.Time, match func(os.DirEntry) bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("retention sweep skipped", "dir", dir, "error", err)
		}
		return
	}
	for _, entry := range entries {
		if !match(entry) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.log.Warn("could not remove expired artifact", "path", path, "error", err)
			continue
		}
		s.log.Info("removed expired artifact", "path", path)
	}
}
