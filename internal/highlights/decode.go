// Package highlights holds the selection-stage domain logic: the candidate
// payload schema and normalization of raw backend responses.
package highlights

import (
	"encoding/json"
	"fmt"

	"clipforge/internal/types"
)

// ToolName is the structured call the selection backend is forced to make.
const ToolName = "save_clips"

// DecodeToolArgs parses the save_clips tool arguments into candidates.
// Models drift on field casing, so camelCase variants of every schema field
// are accepted and folded onto the snake_case form.
func DecodeToolArgs(args string) ([]types.Candidate, error) {
	var payload struct {
		Clips []map[string]any `json:"clips"`
	}
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", ToolName, err)
	}

	out := make([]types.Candidate, 0, len(payload.Clips))
	for _, raw := range payload.Clips {
		out = append(out, types.Candidate{
			StartTime:      stringField(raw, "start_time", "startTime"),
			EndTime:        stringField(raw, "end_time", "endTime"),
			Title:          stringField(raw, "title", "Title"),
			TranscriptText: stringField(raw, "transcript_text", "transcriptText"),
			Reasoning:      stringField(raw, "reasoning", "Reasoning"),
			Score:          intField(raw, "score", "Score"),
		})
	}
	return out, nil
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func intField(m map[string]any, keys ...string) int {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch x := v.(type) {
		case float64:
			return int(x)
		case json.Number:
			if n, err := x.Int64(); err == nil {
				return int(n)
			}
		case string:
			var n int
			if _, err := fmt.Sscanf(x, "%d", &n); err == nil {
				return n
			}
		}
	}
	return 0
}
