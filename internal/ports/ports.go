// Package ports declares the interfaces the pipeline needs from external
// collaborators. Adapters live under ports/adapters.
package ports

import (
	"context"

	"clipforge/internal/types"
)

// Fetcher acquires remote media into destDir and returns the landed file.
type Fetcher interface {
	Fetch(ctx context.Context, locator, destDir string) (types.Media, error)
}

// AudioTool covers the local media conversions the transcription stage needs.
type AudioTool interface {
	// ExtractAudioMono16k normalizes any media file to a mono 16 kHz WAV.
	ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error
	// ExportChunk writes the [startSec, startSec+durSec) span of a WAV as a
	// compressed MP3 suitable for upload.
	ExportChunk(ctx context.Context, inWav string, startSec, durSec float64, outMP3 string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// SpeechBackend transcribes one short audio file into ordered, timestamped
// segments. Timestamps are relative to the submitted file.
type SpeechBackend interface {
	Transcribe(ctx context.Context, audioPath string) ([]types.Segment, error)
}

// Selector asks the language backend for highlight candidates given the
// flattened transcript. An empty result with a nil error means the backend
// answered but proposed nothing; a non-nil error means the call itself failed.
// Callers must keep the two apart.
type Selector interface {
	Select(ctx context.Context, transcript string) ([]types.Candidate, error)
}

// Renderer trims [startSec, endSec) out of the source into a standalone clip.
// An end past the source's natural end truncates rather than erroring.
type Renderer interface {
	Trim(ctx context.Context, srcPath string, startSec, endSec float64, outPath string) error
}

// CropAnalyzer returns the normalized horizontal subject center in [0,1] for
// a span of the source video. Only the CLI vertical-crop path uses it.
type CropAnalyzer interface {
	Analyze(ctx context.Context, videoPath string, startSec, endSec float64) (float64, error)
}

// Reporter receives coarse pipeline stage strings. Reports happen
// synchronously on the goroutine executing the run.
type Reporter interface {
	Report(stage string)
}

// ReporterFunc adapts a function to Reporter. A nil func is a no-op.
type ReporterFunc func(stage string)

func (f ReporterFunc) Report(stage string) {
	if f != nil {
		f(stage)
	}
}
