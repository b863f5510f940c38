package jobs

import (
	"time"

	"clipforge/internal/types"
)

// Job statuses. Between StatusProcessing and a terminal status the field
// carries the orchestrator's stage strings verbatim ("transcribing: 40%",
// "rendering: 3/25", ...), so external callers see partial progress.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Job is the externally observable handle wrapping one pipeline run.
type Job struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	SourcePath string            `json:"source_path,omitempty"`
	RunDir     string            `json:"run_dir,omitempty"`
	Clips      []types.Candidate `json:"clips"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
