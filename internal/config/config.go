// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete service configuration.
type Config struct {
	Service       ServiceConfig
	Playback      PlaybackConfig
	Voice         VoiceConfig
	Kafka         KafkaConfig
	Storage       StorageConfig
	QA            QAConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process identity and listen ports.
type ServiceConfig struct {
	Principal string
	GRPCPort  string
	HTTPPort  string
}

// PlaybackConfig holds command executor tuning.
type PlaybackConfig struct {
	SeekIntervalMs      int64
	ContextWindowMs     int64
	SimulatedDurationMs int64
}

// VoiceConfig holds voice session settings.
type VoiceConfig struct {
	URL            string
	Room           string
	Participant    string
	TokenEndpoint  string
	APIKey         string
	APISecret      string
	TokenTTL       time.Duration
	CommandTimeout time.Duration
	QATimeout      time.Duration
	Proxy          string
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicCommands string
	TopicQA       string
	Principal     string
}

// StorageConfig selects the bookmark store.
type StorageConfig struct {
	// BookmarkDBPath is a SQLite file path; empty keeps bookmarks in memory.
	BookmarkDBPath string
}

// QAConfig configures server-side answers.
type QAConfig struct {
	Enabled bool
	APIKey  string
	Model   string
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables. Invalid values fall
// back to defaults.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-podcast-voice")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Playback: PlaybackConfig{
			SeekIntervalMs:      envOrDefaultInt64("PLAYBACK_SEEK_INTERVAL_MS", 15000),
			ContextWindowMs:     envOrDefaultInt64("TRANSCRIPT_CONTEXT_WINDOW_MS", 120000),
			SimulatedDurationMs: envOrDefaultInt64("PLAYBACK_SIMULATED_DURATION_MS", 3600000),
		},
		Voice: VoiceConfig{
			URL:            envOrDefault("VOICE_URL", "wss://localhost:7880"),
			Room:           envOrDefault("VOICE_ROOM", "podcast-voice-room"),
			Participant:    envOrDefault("VOICE_PARTICIPANT", "user"),
			TokenEndpoint:  os.Getenv("VOICE_TOKEN_ENDPOINT"),
			APIKey:         os.Getenv("VOICE_API_KEY"),
			APISecret:      os.Getenv("VOICE_API_SECRET"),
			TokenTTL:       envOrDefaultDuration("VOICE_TOKEN_TTL", 24*time.Hour),
			CommandTimeout: envOrDefaultDuration("VOICE_COMMAND_TIMEOUT", 500*time.Millisecond),
			QATimeout:      envOrDefaultDuration("VOICE_QA_TIMEOUT", 3*time.Second),
			Proxy:          os.Getenv("VOICE_PROXY"),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envList("KAFKA_BROKERS"),
			TopicCommands: envOrDefault("KAFKA_TOPIC_COMMANDS", "voice.command.events"),
			TopicQA:       envOrDefault("KAFKA_TOPIC_QA", "voice.qa.requests"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Storage: StorageConfig{
			BookmarkDBPath: os.Getenv("BOOKMARK_DB_PATH"),
		},
		QA: QAConfig{
			Enabled: envOrDefaultBool("QA_ENABLED", false),
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   envOrDefault("QA_MODEL", "gpt-4o-mini"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// LoadEnvFile loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
