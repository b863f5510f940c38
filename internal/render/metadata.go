package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"clipforge/internal/types"
)

// MetadataFile is the per-run clip metadata artifact.
const MetadataFile = "clips.json"

// MetadataPath returns the clip metadata location for a run directory.
func MetadataPath(runDir string) string {
	return filepath.Join(runDir, MetadataFile)
}

// WriteMetadata replaces the run's clip metadata wholesale. The write goes to
// a temp file first and is renamed into place so a concurrent reader never
// observes a torn file.
func WriteMetadata(runDir string, candidates []types.Candidate) error {
	b, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal clip metadata: %w", err)
	}
	path := MetadataPath(runDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write clip metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace clip metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads the run's clip metadata. A missing or corrupt file is
// treated as empty and logged; the system stays available with damaged
// persistence.
func LoadMetadata(runDir string, log *slog.Logger) []types.Candidate {
	if log == nil {
		log = slog.Default()
	}
	path := MetadataPath(runDir)
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("unreadable clip metadata, treating as empty", "path", path, "error", err)
		}
		return nil
	}
	var candidates []types.Candidate
	if err := json.Unmarshal(b, &candidates); err != nil {
		log.Warn("corrupt clip metadata, treating as empty", "path", path, "error", err)
		return nil
	}
	return candidates
}
