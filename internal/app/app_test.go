package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"podcast-voice-service/internal/config"
	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/metrics"
	"podcast-voice-service/internal/state"
	"podcast-voice-service/internal/state/sqlite"
)

func testConfig() *config.Config {
	return &config.Config{
		Playback: config.PlaybackConfig{
			SeekIntervalMs:      15000,
			ContextWindowMs:     120000,
			SimulatedDurationMs: 3600000,
		},
		Voice: config.VoiceConfig{
			URL:            "ws://127.0.0.1:1",
			CommandTimeout: time.Second,
			QATimeout:      time.Second,
		},
		Kafka: config.KafkaConfig{TopicCommands: "voice.command.events", TopicQA: "voice.qa.requests"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(cfg, metrics.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	return a
}

func TestNew_Defaults(t *testing.T) {
	a := newTestApp(t, testConfig())

	if a.Session != nil {
		t.Error("expected no voice session without credentials")
	}
	if _, ok := a.Bookmarks.(*state.Memory); !ok {
		t.Errorf("expected in-memory bookmarks, got %T", a.Bookmarks)
	}
	if a.Publisher.Enabled() {
		t.Error("expected log-only publisher")
	}
}

func TestNew_VoiceSessionWithLocalIssuer(t *testing.T) {
	cfg := testConfig()
	cfg.Voice.APIKey = "key"
	cfg.Voice.APISecret = "secret"

	a := newTestApp(t, cfg)

	if a.Session == nil {
		t.Fatal("expected voice session")
	}
}

func TestNew_QARequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Voice.TokenEndpoint = "http://127.0.0.1:1/token"
	cfg.QA.Enabled = true

	if _, err := New(cfg, metrics.NewMetrics(prometheus.NewRegistry())); err == nil {
		t.Error("expected error without OpenAI key")
	}

	cfg.QA.APIKey = "sk-test"
	a := newTestApp(t, cfg)
	if a.Session == nil {
		t.Error("expected voice session with HTTP issuer")
	}
}

func TestNew_SQLiteBookmarks(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.BookmarkDBPath = filepath.Join(t.TempDir(), "bookmarks.db")

	a := newTestApp(t, cfg)

	if _, ok := a.Bookmarks.(*sqlite.BookmarkStore); !ok {
		t.Fatalf("expected sqlite bookmarks, got %T", a.Bookmarks)
	}

	ctx := context.Background()
	if _, err := a.SetPlayback(ctx, EpisodeSetup{EpisodeID: "ep-1", PositionMs: 42000}); err != nil {
		t.Fatalf("set playback: %v", err)
	}
	cmd, err := a.HandleUtterance(ctx, "bookmark this")
	if err != nil || !cmd.Result.Success {
		t.Fatalf("bookmark failed: %v %+v", err, cmd.Result)
	}
	got, err := a.Bookmarks.BookmarksByEpisode(ctx, "ep-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp != 42000 {
		t.Errorf("expected one bookmark at 42000, got %+v", got)
	}
}

func TestSetPlayback(t *testing.T) {
	a := newTestApp(t, testConfig())
	ctx := context.Background()

	if _, err := a.SetPlayback(ctx, EpisodeSetup{}); !errors.Is(err, ErrNoEpisode) {
		t.Errorf("expected ErrNoEpisode, got %v", err)
	}

	ps, err := a.SetPlayback(ctx, EpisodeSetup{
		EpisodeID:  "ep-7",
		DurationMs: 600000,
		PositionMs: 90000,
		Chapters:   []models.Chapter{{StartTime: 0, Title: "Intro"}, {StartTime: 120000, Title: "Main"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ps.EpisodeID != "ep-7" || ps.Position != 90000 || ps.Duration != 600000 {
		t.Errorf("unexpected playback state %+v", ps)
	}
	if len(a.State.Chapters("ep-7")) != 2 {
		t.Error("expected chapters stored")
	}
}

func TestHandleUtterance_SyncsState(t *testing.T) {
	a := newTestApp(t, testConfig())
	ctx := context.Background()
	_, _ = a.SetPlayback(ctx, EpisodeSetup{
		EpisodeID:  "ep-1",
		PositionMs: 60000,
		Chapters:   []models.Chapter{{StartTime: 0, Title: "Intro"}, {StartTime: 120000, Title: "Deep dive"}},
	})

	tests := []struct {
		utterance string
		message   string
		position  int64
	}{
		{"go back 15 seconds", "Rewound 15 seconds", 45000},
		{"skip ahead fifteen", "Forwarded 15 seconds", 60000},
		{"next chapter", "Skipped to: Deep dive", 120000},
		{"jump to 2:30", "Jumped to 2:30", 150000},
	}
	for _, tt := range tests {
		cmd, err := a.HandleUtterance(ctx, tt.utterance)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.utterance, err)
		}
		if cmd.Result.Message != tt.message {
			t.Errorf("%q: expected %q, got %q", tt.utterance, tt.message, cmd.Result.Message)
		}
		if got := a.State.Playback().Position; got != tt.position {
			t.Errorf("%q: expected position %d, got %d", tt.utterance, tt.position, got)
		}
	}

	if got := a.Executor.History().Len(); got != len(tests) {
		t.Errorf("expected %d history records, got %d", len(tests), got)
	}
}

type slowResponder struct{ delay time.Duration }

func (r slowResponder) Answer(ctx context.Context, _ models.VoiceCommand) (string, error) {
	select {
	case <-time.After(r.delay):
		return "Here is the summary.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestHandleUtterance_AnswerNotBoundByCommandTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Voice.CommandTimeout = 20 * time.Millisecond
	a := newTestApp(t, cfg)
	a.Session = a.newSession(nil, slowResponder{delay: 80 * time.Millisecond})

	ctx := context.Background()
	_, _ = a.SetPlayback(ctx, EpisodeSetup{EpisodeID: "ep-1", PositionMs: 90000})

	answers := make(chan string, 1)
	a.Session.OnResponse(func(s string) { answers <- s })

	cmd, err := a.HandleUtterance(ctx, "summarize the last minute")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Result == nil || !cmd.Result.NeedsServerProcessing {
		t.Fatalf("expected a server-processed command, got %+v", cmd.Result)
	}
	select {
	case got := <-answers:
		if got != "Here is the summary." {
			t.Errorf("unexpected answer %q", got)
		}
	default:
		t.Error("expected answer delivered despite the command timeout")
	}
}

func TestParseIntent(t *testing.T) {
	a := newTestApp(t, testConfig())

	if got := a.ParseIntent("pause"); got.Type != models.IntentPause {
		t.Errorf("expected pause, got %v", got.Type)
	}
	if a.Executor.History().Len() != 0 {
		t.Error("expected parse to leave history untouched")
	}
}
