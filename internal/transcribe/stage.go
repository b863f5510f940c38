// Package transcribe turns arbitrary-length media into an ordered, globally
// time-consistent transcript by chunking normalized audio and submitting each
// chunk to the speech backend in sequence.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/ports"
	"clipforge/internal/timecode"
	"clipforge/internal/types"
)

// defaultChunkSeconds keeps each upload well under backend size limits while
// leaving enough context for accurate segmentation.
const defaultChunkSeconds = 120.0

type Stage struct {
	audio  ports.AudioTool
	speech ports.SpeechBackend
	log    *slog.Logger

	chunkSeconds float64
}

func NewStage(audio ports.AudioTool, speech ports.SpeechBackend, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{audio: audio, speech: speech, log: log, chunkSeconds: defaultChunkSeconds}
}

// Transcribe normalizes the source to mono 16 kHz, splits it into fixed
// chunks and transcribes them strictly in order, offsetting every returned
// segment by its chunk's absolute start time. Progress is reported as
// floor(done/total*100) after each chunk: 0 up front, 100 at the end,
// monotonically non-decreasing.
//
// Chunks are submitted sequentially on purpose: backend rate limits dominate
// total latency anyway, and ordered submission keeps progress deterministic.
// Any conversion or backend error aborts the whole stage.
func (s *Stage) Transcribe(ctx context.Context, mediaPath string, onProgress func(percent int)) ([]types.Segment, error) {
	report := func(p int) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	report(0)

	tmpDir, err := os.MkdirTemp("", "clipforge-transcribe-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	wav := filepath.Join(tmpDir, "audio.wav")
	if err := s.audio.ExtractAudioMono16k(ctx, mediaPath, wav); err != nil {
		return nil, err
	}

	duration, err := s.audio.ProbeDuration(ctx, wav)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, errors.New("normalized audio is empty")
	}

	totalChunks := int(math.Ceil(duration / s.chunkSeconds))
	s.log.Info("transcribing in chunks", "chunks", totalChunks, "duration_sec", duration)

	var segments []types.Segment
	for i := 0; i < totalChunks; i++ {
		start := float64(i) * s.chunkSeconds
		length := math.Min(s.chunkSeconds, duration-start)
		if length <= 0 {
			continue
		}

		chunkPath := filepath.Join(tmpDir, fmt.Sprintf("chunk_%d.mp3", i))
		if err := s.audio.ExportChunk(ctx, wav, start, length, chunkPath); err != nil {
			return nil, err
		}

		chunkSegs, err := s.speech.Transcribe(ctx, chunkPath)
		if err != nil {
			return nil, err
		}
		for _, seg := range chunkSegs {
			segments = append(segments, types.Segment{
				Start: seg.Start + start,
				End:   seg.End + start,
				Text:  strings.TrimSpace(seg.Text),
			})
		}

		report(int(float64(i+1) / float64(totalChunks) * 100))
	}

	report(100)
	return segments, nil
}

// ToTextBlock flattens segments into the transcript block handed to the
// selection backend, one "[MM:SS-MM:SS] text" line per segment.
func ToTextBlock(segments []types.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s-%s] %s\n",
			timecode.FormatClock(seg.Start),
			timecode.FormatClock(seg.End),
			seg.Text,
		)
	}
	return b.String()
}
