package whisperapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func transcriptionServer(t *testing.T, payload map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q, want verbose_json", got)
		}
		json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeChunk(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	return path
}

func TestTranscribeSegments(t *testing.T) {
	t.Parallel()

	srv := transcriptionServer(t, map[string]any{
		"task":     "transcribe",
		"text":     "hello world again",
		"duration": 10.0,
		"segments": []map[string]any{
			{"id": 0, "start": 0.0, "end": 4.2, "text": " hello world "},
			{"id": 1, "start": 4.2, "end": 9.8, "text": " again "},
		},
	})

	adapter := New("test-key", srv.URL, "")
	segs, err := adapter.Transcribe(context.Background(), writeChunk(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Text != "hello world" || segs[1].Text != "again" {
		t.Fatalf("segment text not trimmed: %+v", segs)
	}
	if segs[0].Start != 0 || segs[0].End != 4.2 || segs[1].Start != 4.2 {
		t.Fatalf("timestamps lost: %+v", segs)
	}
}

func TestTranscribeTextOnlyFallsBackToWholeChunk(t *testing.T) {
	t.Parallel()

	srv := transcriptionServer(t, map[string]any{
		"task":     "transcribe",
		"text":     "  just text, no segments  ",
		"duration": 7.5,
	})

	adapter := New("test-key", srv.URL, "")
	segs, err := adapter.Transcribe(context.Background(), writeChunk(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected a single whole-chunk segment, got %+v", segs)
	}
	if segs[0].Start != 0 || segs[0].End != 7.5 {
		t.Fatalf("fallback segment must span the chunk: %+v", segs[0])
	}
	if segs[0].Text != "just text, no segments" {
		t.Fatalf("fallback text not trimmed: %q", segs[0].Text)
	}
}

func TestTranscribeEmptyResponse(t *testing.T) {
	t.Parallel()

	srv := transcriptionServer(t, map[string]any{"task": "transcribe", "text": ""})
	adapter := New("test-key", srv.URL, "")
	segs, err := adapter.Transcribe(context.Background(), writeChunk(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("silence must yield no segments, got %+v", segs)
	}
}

func TestTranscribeBackendError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "upstream unavailable"},
		})
	}))
	t.Cleanup(srv.Close)

	adapter := New("test-key", srv.URL, "")
	if _, err := adapter.Transcribe(context.Background(), writeChunk(t)); err == nil {
		t.Fatalf("expected transport failure to surface")
	}
}
