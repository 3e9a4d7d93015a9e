// Package app wires the voice command pipeline shared by every binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"podcast-voice-service/internal/config"
	"podcast-voice-service/internal/events"
	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/logging"
	"podcast-voice-service/internal/observability/metrics"
	"podcast-voice-service/internal/service/command"
	"podcast-voice-service/internal/service/intent"
	"podcast-voice-service/internal/service/playback"
	"podcast-voice-service/internal/service/playback/mock"
	"podcast-voice-service/internal/service/qa"
	"podcast-voice-service/internal/service/session"
	"podcast-voice-service/internal/service/token"
	"podcast-voice-service/internal/service/transcript"
	"podcast-voice-service/internal/socks"
	"podcast-voice-service/internal/state"
	"podcast-voice-service/internal/state/sqlite"
	"podcast-voice-service/internal/transport/ws"
)

// ErrNoEpisode is returned by SetPlayback without an episode id.
var ErrNoEpisode = errors.New("episode id is required")

const (
	playerTick        = 250 * time.Millisecond
	issuerHTTPTimeout = 10 * time.Second
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Metrics     *metrics.Metrics

	State       *state.Memory
	Bookmarks   state.BookmarkStore
	Transcripts *transcript.Store
	Player      *mock.Player
	Publisher   *events.Publisher
	Executor    *command.Executor
	// Session is nil when no token issuer is configured.
	Session *session.Coordinator

	cancel  context.CancelFunc
	closers []func() error
}

// EpisodeSetup loads an episode into the simulated player.
type EpisodeSetup struct {
	EpisodeID  string
	DurationMs int64
	PositionMs int64
	Chapters   []models.Chapter
}

// New constructs the application from cfg. A nil m uses the default registry.
func New(cfg *config.Config, m *metrics.Metrics) (*Application, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	a := &Application{
		Cfg:         cfg,
		Metrics:     m,
		Logger:      logging.WithComponent("application"),
		State:       state.NewMemory(),
		Transcripts: transcript.NewStore(m),
	}

	a.Bookmarks = a.State
	if path := cfg.Storage.BookmarkDBPath; path != "" {
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open bookmark store: %w", err)
		}
		a.Bookmarks = store
		a.closers = append(a.closers, store.Close)
		a.Logger.Info().Str("path", path).Msg("Using SQLite bookmark store")
	}

	a.Player = mock.New(cfg.Playback.SimulatedDurationMs)
	a.Player.SetJumpInterval(cfg.Playback.SeekIntervalMs)
	a.Player.OnProgress(a.syncProgress)

	a.Publisher = events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicCommands: cfg.Kafka.TopicCommands,
		TopicQA:       cfg.Kafka.TopicQA,
		Principal:     cfg.Kafka.Principal,
		Metrics:       m,
	})
	a.closers = append(a.closers, a.Publisher.Close)

	a.Executor = command.NewExecutor(command.Config{
		Player:          a.Player,
		State:           a.State,
		Bookmarks:       a.Bookmarks,
		Transcripts:     a.Transcripts,
		Events:          a.Publisher,
		Metrics:         m,
		SeekIntervalMs:  cfg.Playback.SeekIntervalMs,
		ContextWindowMs: cfg.Playback.ContextWindowMs,
	})

	issuer, err := newIssuer(cfg.Voice)
	if err != nil {
		a.Close()
		return nil, err
	}
	if issuer != nil {
		responder, err := newResponder(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Session = a.newSession(issuer, responder)
	} else {
		a.Logger.Info().Msg("No voice token issuer configured, voice session disabled")
	}

	a.Logger.Info().Msg("Podcast voice service application created")
	return a, nil
}

// newSession builds the voice session over the executor. The command
// timeout bounds execution only; server answers get the QA timeout.
func (a *Application) newSession(issuer session.TokenIssuer, responder session.Responder) *session.Coordinator {
	return session.New(session.Config{
		URL:            a.Cfg.Voice.URL,
		CommandTimeout: a.Cfg.Voice.CommandTimeout,
		QATimeout:      a.Cfg.Voice.QATimeout,
		Tokens:         issuer,
		NewTransport:   ws.Factory(ws.Options{Proxy: a.Cfg.Voice.Proxy}),
		Pipeline:       a.Executor,
		Responder:      responder,
		Metrics:        a.Metrics,
	})
}

func newIssuer(cfg config.VoiceConfig) (session.TokenIssuer, error) {
	switch {
	case cfg.TokenEndpoint != "":
		client, err := socks.HTTPClient(cfg.Proxy, issuerHTTPTimeout)
		if err != nil {
			return nil, err
		}
		return token.NewHTTPIssuer(cfg.TokenEndpoint, client), nil
	case cfg.APIKey != "" && cfg.APISecret != "":
		iss, err := token.NewLocalIssuer(cfg.APIKey, cfg.APISecret, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		return iss, nil
	default:
		return nil, nil
	}
}

func newResponder(cfg *config.Config) (session.Responder, error) {
	if !cfg.QA.Enabled {
		return nil, nil
	}
	if cfg.QA.APIKey == "" {
		return nil, errors.New("QA_ENABLED requires OPENAI_API_KEY")
	}
	httpClient, err := socks.HTTPClient(cfg.Voice.Proxy, 0)
	if err != nil {
		return nil, err
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.QA.APIKey),
		option.WithHTTPClient(httpClient),
	)
	return qa.NewAnswerer(client, cfg.QA.Model), nil
}

// syncProgress mirrors the simulated engine into application state.
func (a *Application) syncProgress(p playback.Progress) {
	a.State.ApplyPlayback(models.PlaybackUpdate{
		Position:  &p.PositionMs,
		Duration:  &p.DurationMs,
		IsPlaying: &p.IsPlaying,
		Rate:      &p.Rate,
	})
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start(ctx context.Context) error {
	a.StartupTime = time.Now().UTC()

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.Player.Run(runCtx, playerTick)

	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Bool("voiceSession", a.Session != nil).
		Msg("Podcast voice service starting")
	return nil
}

// ParseIntent classifies an utterance without executing it.
func (a *Application) ParseIntent(utterance string) models.VoiceIntent {
	return intent.Parse(utterance)
}

// HandleUtterance parses and executes one utterance within the configured
// command timeout. Through the voice session when one is configured, so
// server answers reach the session listeners; the session applies the
// command timeout itself and answers with the QA timeout.
func (a *Application) HandleUtterance(ctx context.Context, utterance string) (models.VoiceCommand, error) {
	if a.Session != nil {
		return a.Session.HandleUtterance(ctx, utterance)
	}
	if d := a.Cfg.Voice.CommandTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return a.Executor.Handle(ctx, utterance)
}

// SetPlayback loads an episode into the player and application state.
func (a *Application) SetPlayback(ctx context.Context, setup EpisodeSetup) (models.PlaybackState, error) {
	if setup.EpisodeID == "" {
		return models.PlaybackState{}, ErrNoEpisode
	}

	a.State.PutEpisode(setup.EpisodeID, setup.Chapters)
	a.State.ApplyPlayback(models.PlaybackUpdate{EpisodeID: &setup.EpisodeID})
	if setup.DurationMs > 0 {
		a.Player.SetDuration(setup.DurationMs)
	}
	if err := a.Player.SeekTo(ctx, setup.PositionMs); err != nil {
		return models.PlaybackState{}, err
	}

	logger := logging.WithEpisode("application", setup.EpisodeID)
	logger.Info().
		Int64("positionMs", setup.PositionMs).
		Int("chapters", len(setup.Chapters)).
		Msg("Episode loaded")
	return a.State.Playback(), nil
}

// Shutdown disconnects the voice session, waits for pending events and
// releases resources.
func (a *Application) Shutdown(ctx context.Context) {
	a.Logger.Info().Msg("Podcast voice service shutting down")

	if a.Session != nil {
		a.Session.Disconnect(ctx)
	}
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.Executor.Flush(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Pending events not flushed")
	}
	a.Close()
}

// Close releases storage and publisher resources.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing resource")
		}
	}
	a.closers = nil
}
