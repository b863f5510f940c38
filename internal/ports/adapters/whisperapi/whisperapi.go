// Package whisperapi transcribes short audio files through the OpenAI
// Whisper API, requesting segment-level timestamps.
package whisperapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"clipforge/internal/types"
)

const requestTimeout = 5 * time.Minute

type Adapter struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Adapter {
	if model == "" {
		model = openai.Whisper1
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Adapter{client: openai.NewClientWithConfig(cfg), model: model}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath string) ([]types.Segment, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := a.client.CreateTranscription(reqCtx, openai.AudioRequest{
		Model:    a.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	if len(resp.Segments) == 0 {
		// Backends occasionally return plain text without segments; keep the
		// chunk usable with a single whole-chunk segment.
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, nil
		}
		return []types.Segment{{Start: 0, End: resp.Duration, Text: text}}, nil
	}

	segs := make([]types.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, types.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return segs, nil
}
