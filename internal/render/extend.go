package render

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"clipforge/internal/timecode"
	"clipforge/internal/types"
)

// Boundary directions accepted by Extend.
const (
	DirectionStart = "start"
	DirectionEnd   = "end"
)

var (
	ErrClipNotFound = errors.New("clip not found in run metadata")
	ErrNoMetadata   = errors.New("run has no clip metadata")
)

// ExtendRequest adjusts one boundary of an already rendered clip. The source
// path comes from the job record, never inferred from the clip's location.
type ExtendRequest struct {
	RunDir     string
	SourcePath string
	Filename   string
	Direction  string
	DeltaSec   float64
}

// Extend grows the clip outward at the given boundary by DeltaSec: the start
// moves earlier (clamped at zero), the end moves later (unclamped; the render
// backend truncates past the source's natural end). The clip is re-rendered
// to the same filename and the matching metadata entry is rewritten with the
// new boundaries. A file lock serializes concurrent extends against the same
// run so the metadata file cannot be corrupted.
func (s *Stage) Extend(ctx context.Context, req ExtendRequest) (types.Candidate, error) {
	lock := flock.New(MetadataPath(req.RunDir) + ".lock")
	if err := lock.Lock(); err != nil {
		return types.Candidate{}, fmt.Errorf("lock clip metadata: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	candidates := LoadMetadata(req.RunDir, s.log)
	if len(candidates) == 0 {
		return types.Candidate{}, ErrNoMetadata
	}

	idx := -1
	for i := range candidates {
		if candidates[i].Filename == req.Filename {
			idx = i
			break
		}
	}
	if idx < 0 {
		return types.Candidate{}, fmt.Errorf("%w: %s", ErrClipNotFound, req.Filename)
	}

	c := &candidates[idx]
	startSec := timecode.ParseClock(c.StartTime)
	endSec := timecode.ParseClock(c.EndTime)

	switch req.Direction {
	case DirectionStart:
		startSec -= req.DeltaSec
		if startSec < 0 {
			startSec = 0
		}
	case DirectionEnd:
		endSec += req.DeltaSec
	default:
		return types.Candidate{}, fmt.Errorf("unknown direction %q", req.Direction)
	}
	if endSec <= startSec {
		return types.Candidate{}, fmt.Errorf("adjusted range is empty (%s..%s)",
			timecode.FormatClock(startSec), timecode.FormatClock(endSec))
	}

	outPath := filepath.Join(req.RunDir, ClipsSubdir, req.Filename)
	if err := s.renderer.Trim(ctx, req.SourcePath, startSec, endSec, outPath); err != nil {
		return types.Candidate{}, err
	}

	c.StartTime = timecode.FormatClock(startSec)
	c.EndTime = timecode.FormatClock(endSec)
	if err := WriteMetadata(req.RunDir, candidates); err != nil {
		return types.Candidate{}, err
	}
	return *c, nil
}
