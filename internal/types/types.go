package types

// Segment is one timestamped piece of transcript. Start and End are absolute
// seconds from the beginning of the source media.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Candidate is a highlight segment proposed by the selection backend.
// Filename stays empty until the render stage produces a clip for it; Path is
// filled on job records once the clip location relative to the output root is
// known.
type Candidate struct {
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Title          string `json:"title"`
	TranscriptText string `json:"transcript_text"`
	Reasoning      string `json:"reasoning"`
	Score          int    `json:"score"`
	Filename       string `json:"filename,omitempty"`
	Path           string `json:"path,omitempty"`
}

// Media describes an acquired source file.
type Media struct {
	Path     string
	Title    string
	Duration float64
	ID       string
}
