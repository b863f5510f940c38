// Package llmagent asks a tool-calling language backend for highlight
// candidates using a strict save_clips schema.
package llmagent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"clipforge/internal/highlights"
	"clipforge/internal/types"
)

const (
	requestTimeout = 2 * time.Minute

	candidateTarget = 25
	minClipSeconds  = 30
	maxClipSeconds  = 60
)

type Adapter struct {
	client *openai.Client
	key    string
	model  string
}

func New(apiKey, baseURL, model string) *Adapter {
	if model == "" {
		model = "gpt-4o"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Adapter{client: openai.NewClientWithConfig(cfg), key: apiKey, model: model}
}

var saveClipsParams = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"clips": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"start_time":      {Type: jsonschema.String, Description: "Start time in MM:SS format"},
					"end_time":        {Type: jsonschema.String, Description: "End time in MM:SS format"},
					"title":           {Type: jsonschema.String, Description: "Catchy hook title for the clip"},
					"transcript_text": {Type: jsonschema.String, Description: "The exact verbatim text content of the clip"},
					"reasoning":       {Type: jsonschema.String, Description: "Why this segment will perform"},
					"score":           {Type: jsonschema.Integer, Description: "Engagement score from 0-100"},
				},
				Required: []string{"start_time", "end_time", "title", "transcript_text", "reasoning", "score"},
			},
		},
	},
	Required: []string{"clips"},
}

// Select requests highlight candidates for the flattened transcript. A
// response without a structured tool call yields an empty list with a nil
// error; only the call itself failing returns an error.
func (a *Adapter) Select(ctx context.Context, transcript string) ([]types.Candidate, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(transcript)},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        highlights.ToolName,
					Description: "Saves the identified highlight clips.",
					Parameters:  saveClipsParams,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: highlights.ToolName},
		},
	})
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("selection backend timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return nil, fmt.Errorf("selection backend: %s", redactSecrets(err.Error(), a.key))
	}

	for _, choice := range resp.Choices {
		for _, call := range choice.Message.ToolCalls {
			if call.Function.Name != highlights.ToolName {
				continue
			}
			cands, err := highlights.DecodeToolArgs(call.Function.Arguments)
			if err != nil {
				// Malformed structured payload counts as "no answer", not a
				// backend failure.
				return nil, nil
			}
			return cands, nil
		}
	}
	return nil, nil
}

func buildPrompt(transcript string) string {
	return fmt.Sprintf(
		"You are an expert short-form video editor. Analyze the transcript below and "+
			"identify exactly %d of the most engaging segments, then call the %s tool with the list.\n\n"+
			"Rules:\n"+
			"1. Each clip must run between %d and %d seconds; verify the difference between start_time and end_time.\n"+
			"2. Clips must be self-contained with a clear beginning and end thought; never cut a sentence in half.\n"+
			"3. Favor actionable advice, strong or controversial opinions, emotional peaks and funny moments.\n"+
			"4. Copy the exact transcript text of the segment into transcript_text.\n\n"+
			"TRANSCRIPT:\n%s",
		candidateTarget, highlights.ToolName, minClipSeconds, maxClipSeconds, transcript,
	)
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
