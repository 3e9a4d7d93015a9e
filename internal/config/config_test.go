package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allVars = []string{
	"SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_PORT",
	"PLAYBACK_SEEK_INTERVAL_MS", "TRANSCRIPT_CONTEXT_WINDOW_MS", "PLAYBACK_SIMULATED_DURATION_MS",
	"VOICE_URL", "VOICE_ROOM", "VOICE_PARTICIPANT", "VOICE_TOKEN_ENDPOINT",
	"VOICE_API_KEY", "VOICE_API_SECRET", "VOICE_TOKEN_TTL",
	"VOICE_COMMAND_TIMEOUT", "VOICE_QA_TIMEOUT", "VOICE_PROXY",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_COMMANDS", "KAFKA_TOPIC_QA", "KAFKA_PRINCIPAL",
	"BOOKMARK_DB_PATH", "QA_ENABLED", "OPENAI_API_KEY", "QA_MODEL",
	"LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range allVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-podcast-voice" {
		t.Errorf("expected default principal 'svc-podcast-voice', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" || cfg.Service.HTTPPort != "8080" {
		t.Errorf("unexpected default ports %s/%s", cfg.Service.GRPCPort, cfg.Service.HTTPPort)
	}

	// Playback defaults
	if cfg.Playback.SeekIntervalMs != 15000 {
		t.Errorf("expected seek interval 15000, got %d", cfg.Playback.SeekIntervalMs)
	}
	if cfg.Playback.ContextWindowMs != 120000 {
		t.Errorf("expected context window 120000, got %d", cfg.Playback.ContextWindowMs)
	}

	// Voice defaults
	if cfg.Voice.Room != "podcast-voice-room" || cfg.Voice.Participant != "user" {
		t.Errorf("unexpected room/participant %s/%s", cfg.Voice.Room, cfg.Voice.Participant)
	}
	if cfg.Voice.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h token TTL, got %v", cfg.Voice.TokenTTL)
	}
	if cfg.Voice.CommandTimeout != 500*time.Millisecond {
		t.Errorf("expected 500ms command timeout, got %v", cfg.Voice.CommandTimeout)
	}
	if cfg.Voice.QATimeout != 3*time.Second {
		t.Errorf("expected 3s QA timeout, got %v", cfg.Voice.QATimeout)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected no brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.TopicCommands != "voice.command.events" || cfg.Kafka.TopicQA != "voice.qa.requests" {
		t.Errorf("unexpected topics %s/%s", cfg.Kafka.TopicCommands, cfg.Kafka.TopicQA)
	}

	// Storage and QA defaults
	if cfg.Storage.BookmarkDBPath != "" {
		t.Errorf("expected in-memory bookmarks, got %q", cfg.Storage.BookmarkDBPath)
	}
	if cfg.QA.Enabled || cfg.QA.Model != "gpt-4o-mini" {
		t.Errorf("unexpected QA defaults %+v", cfg.QA)
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" || cfg.Observability.LogFormat != "json" {
		t.Errorf("unexpected log defaults %+v", cfg.Observability)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("GRPC_PORT", "9999")
	t.Setenv("PLAYBACK_SEEK_INTERVAL_MS", "30000")
	t.Setenv("VOICE_URL", "wss://voice.example.test")
	t.Setenv("VOICE_TOKEN_TTL", "1h")
	t.Setenv("VOICE_QA_TIMEOUT", "5s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("BOOKMARK_DB_PATH", "/var/lib/voice/bookmarks.db")
	t.Setenv("QA_ENABLED", "1")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" || cfg.Service.GRPCPort != "9999" {
		t.Errorf("unexpected service config %+v", cfg.Service)
	}
	if cfg.Playback.SeekIntervalMs != 30000 {
		t.Errorf("expected seek interval 30000, got %d", cfg.Playback.SeekIntervalMs)
	}
	if cfg.Voice.URL != "wss://voice.example.test" || cfg.Voice.TokenTTL != time.Hour || cfg.Voice.QATimeout != 5*time.Second {
		t.Errorf("unexpected voice config %+v", cfg.Voice)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Storage.BookmarkDBPath != "/var/lib/voice/bookmarks.db" {
		t.Errorf("unexpected db path %q", cfg.Storage.BookmarkDBPath)
	}
	if !cfg.QA.Enabled {
		t.Error("expected QA enabled")
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLAYBACK_SEEK_INTERVAL_MS", "not-a-number")
	t.Setenv("TRANSCRIPT_CONTEXT_WINDOW_MS", "-5")
	t.Setenv("VOICE_TOKEN_TTL", "forever")
	t.Setenv("VOICE_COMMAND_TIMEOUT", "0s")
	t.Setenv("KAFKA_ENABLED", "maybe")

	cfg := Load()

	if cfg.Playback.SeekIntervalMs != 15000 {
		t.Errorf("expected default seek interval on invalid input, got %d", cfg.Playback.SeekIntervalMs)
	}
	if cfg.Playback.ContextWindowMs != 120000 {
		t.Errorf("expected default window on negative input, got %d", cfg.Playback.ContextWindowMs)
	}
	if cfg.Voice.TokenTTL != 24*time.Hour {
		t.Errorf("expected default TTL on invalid input, got %v", cfg.Voice.TokenTTL)
	}
	if cfg.Voice.CommandTimeout != 500*time.Millisecond {
		t.Errorf("expected default command timeout on zero input, got %v", cfg.Voice.CommandTimeout)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka enabled on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_PRINCIPAL", "my-service")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)

			got := envOrDefaultBool("TEST_BOOL_VAR", tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VOICE_ROOM=from-file\nGRPC_PORT=7000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRPC_PORT", "6000")
	t.Cleanup(func() { os.Unsetenv("VOICE_ROOM") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := Load()

	if cfg.Voice.Room != "from-file" {
		t.Errorf("expected room from file, got %s", cfg.Voice.Room)
	}
	if cfg.Service.GRPCPort != "6000" {
		t.Errorf("expected existing env to win, got %s", cfg.Service.GRPCPort)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("expected missing file to be ignored, got %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("expected empty path to be ignored, got %v", err)
	}
}
