package qa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"podcast-voice-service/internal/models"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, content string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) openai.Client {
	return openai.NewClient(
		option.WithBaseURL(url+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
}

func explainCommand() models.VoiceCommand {
	return models.VoiceCommand{
		ID:     "cmd-1",
		Intent: models.VoiceIntent{Type: models.IntentExplain, Utterance: "explain transformers", Confidence: 0.85},
		Result: &models.CommandResult{
			Success:               true,
			NeedsServerProcessing: true,
			Context: &models.ServerContext{
				EpisodeID:  "ep-1",
				PlayheadMs: 65000,
				Query:      "transformers",
				TranscriptWindow: []models.TranscriptSegment{
					{StartTime: 60000, EndTime: 64000, Text: "Attention is all you need.", Speaker: "Host"},
				},
			},
		},
	}
}

func TestAnswerer_Answer(t *testing.T) {
	var req chatRequest
	srv := completionServer(t, "  Transformers weigh every token against every other.  ", &req)

	answer, err := NewAnswerer(newTestClient(srv.URL), "").Answer(context.Background(), explainCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Transformers weigh every token against every other." {
		t.Errorf("unexpected answer %q", answer)
	}
	if req.Model != DefaultModel {
		t.Errorf("expected default model, got %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[1].Content, "transformers") ||
		!strings.Contains(req.Messages[1].Content, "Attention is all you need.") {
		t.Errorf("prompt missing query or transcript: %q", req.Messages[1].Content)
	}
}

func TestAnswerer_EmptyContent(t *testing.T) {
	srv := completionServer(t, "", nil)

	if _, err := NewAnswerer(newTestClient(srv.URL), "gpt-4o").Answer(context.Background(), explainCommand()); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestAnswerer_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	if _, err := NewAnswerer(newTestClient(srv.URL), "").Answer(context.Background(), explainCommand()); err == nil {
		t.Error("expected upstream error")
	}
}

func TestAnswerer_NoContext(t *testing.T) {
	a := NewAnswerer(newTestClient("http://127.0.0.1:1"), "")

	for _, cmd := range []models.VoiceCommand{
		{},
		{Result: &models.CommandResult{Success: true}},
	} {
		if _, err := a.Answer(context.Background(), cmd); !errors.Is(err, ErrNoContext) {
			t.Errorf("expected ErrNoContext, got %v", err)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name   string
		intent models.VoiceIntent
		sc     models.ServerContext
		want   []string
	}{
		{
			name:   "summary",
			intent: models.VoiceIntent{Type: models.IntentSummarize},
			sc:     models.ServerContext{Request: models.RequestSummarizeLastMinute, PlayheadMs: 125000},
			want:   []string{"summarize the last minute", "Listener position: 2:05", "Transcript: (none)"},
		},
		{
			name:   "question with query",
			intent: models.VoiceIntent{Type: models.IntentQuestion, Utterance: "what is rust"},
			sc:     models.ServerContext{Query: "rust"},
			want:   []string{"Request (question): rust"},
		},
		{
			name:   "falls back to utterance",
			intent: models.VoiceIntent{Type: models.IntentExplain, Utterance: "explain that"},
			sc:     models.ServerContext{},
			want:   []string{"Request (explain): explain that"},
		},
		{
			name:   "speaker prefix",
			intent: models.VoiceIntent{Type: models.IntentSummarize},
			sc: models.ServerContext{TranscriptWindow: []models.TranscriptSegment{
				{StartTime: 5000, EndTime: 9000, Text: "Hello.", Speaker: "Guest"},
				{StartTime: 9000, EndTime: 12000, Text: "Hi."},
			}},
			want: []string{"[0:05] Guest: Hello.", "[0:09] Hi."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildPrompt(tt.intent, tt.sc)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("expected %q in prompt:\n%s", w, got)
				}
			}
		})
	}
}
