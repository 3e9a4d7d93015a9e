// Package session coordinates a voice-assistant session: it obtains a
// credential, owns one transport connection, toggles the microphone and
// routes transcribed utterances into the command pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/logging"
	"podcast-voice-service/internal/observability/metrics"
)

var (
	// ErrNotConnected is returned for lifecycle calls that need an open session.
	ErrNotConnected = errors.New("voice session not connected")
	// ErrResponseTimeout is returned when no response arrives before the deadline.
	ErrResponseTimeout = errors.New("voice session response timeout")
	// ErrConnectAborted is returned when Disconnect runs while Connect is in flight.
	ErrConnectAborted = errors.New("voice session connect aborted")
	// ErrNoPipeline is returned by HandleUtterance without a configured pipeline.
	ErrNoPipeline = errors.New("no command pipeline configured")
)

const (
	DefaultRoom        = "podcast-voice-room"
	DefaultParticipant = "user"
	DefaultQATimeout   = 3 * time.Second
)

// Config wires a Coordinator. Tokens and NewTransport are required.
type Config struct {
	URL string
	// CommandTimeout bounds pipeline execution; zero means no bound.
	CommandTimeout time.Duration
	// QATimeout bounds a server answer independently of CommandTimeout.
	QATimeout    time.Duration
	Tokens       TokenIssuer
	NewTransport TransportFactory
	Audio        AudioSession // optional
	Pipeline     Pipeline     // optional
	Responder    Responder    // optional
	Metrics      *metrics.Metrics
}

// Coordinator owns at most one transport session. Lifecycle calls must be
// serialised by the caller; Disconnect is safe at any time.
type Coordinator struct {
	cfg       Config
	metrics   *metrics.Metrics
	lifecycle *Lifecycle

	mu         sync.Mutex
	transport  Transport
	generation uint64
	sessionID  string
	room       string
	done       chan struct{}
	responses  chan string

	onResponse      func(string)
	onAgentSpeaking func(bool)
	onDisconnect    func()
	onResult        func(models.VoiceCommand)

	logger zerolog.Logger
}

// New creates a disconnected coordinator.
func New(cfg Config) *Coordinator {
	if cfg.QATimeout <= 0 {
		cfg.QATimeout = DefaultQATimeout
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}
	c := &Coordinator{
		cfg:       cfg,
		metrics:   m,
		responses: make(chan string, 8),
		logger:    logging.WithComponent("session"),
	}
	c.lifecycle = NewLifecycle(func(from, to State) {
		m.RecordSessionTransition(from.String(), to.String())
	})
	return c
}

// OnResponse registers the handler for user transcriptions and agent or
// server answers. Replaces any previous handler.
func (c *Coordinator) OnResponse(fn func(text string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResponse = fn
}

// OnAgentSpeaking registers the agent speaking handler. Replaces any previous handler.
func (c *Coordinator) OnAgentSpeaking(fn func(speaking bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAgentSpeaking = fn
}

// OnDisconnect registers the handler fired once per unsolicited transport
// disconnect. Replaces any previous handler.
func (c *Coordinator) OnDisconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// OnResult registers the handler for executed commands. Replaces any previous handler.
func (c *Coordinator) OnResult(fn func(models.VoiceCommand)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = fn
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State { return c.lifecycle.State() }

// IsActive reports whether a transport session is open.
func (c *Coordinator) IsActive() bool { return c.lifecycle.State().IsActive() }

// IsListening reports whether the microphone is enabled.
func (c *Coordinator) IsListening() bool { return c.lifecycle.State() == StateListening }

// SessionID returns the id of the current session, or "".
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connect opens a session. It is a no-op while already connected. A stale
// transport left behind by a failed session is torn down first.
func (c *Coordinator) Connect(ctx context.Context, room, participant string, pc *models.PodcastContext) error {
	if room == "" {
		room = DefaultRoom
	}
	if participant == "" {
		participant = DefaultParticipant
	}

	c.mu.Lock()
	if c.lifecycle.State().IsActive() && c.transport != nil {
		c.mu.Unlock()
		c.logger.Debug().Str("room", room).Msg("Already connected, reusing session")
		return nil
	}
	stale := c.transport
	c.transport = nil
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	if stale != nil {
		c.logger.Info().Msg("Cleaning up stale session")
		if err := stale.Disconnect(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Error disconnecting stale session")
		}
	}
	c.lifecycle.Fail()

	if err := c.lifecycle.Transition(StateConnecting); err != nil {
		return err
	}

	sessionID := uuid.NewString()
	c.mu.Lock()
	c.sessionID = sessionID
	c.room = room
	c.mu.Unlock()
	logger := logging.WithSession(sessionID, room)

	if c.cfg.Audio != nil {
		if err := c.cfg.Audio.Configure(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to configure audio session")
		}
	}

	token, err := c.cfg.Tokens.Issue(ctx, room, participant, pc)
	if err != nil {
		return c.failConnect(gen, "token", fmt.Errorf("issue token: %w", err))
	}

	t := c.cfg.NewTransport()
	t.OnEvent(func(ev Event) { c.handleEvent(gen, ev) })

	logger.Info().Str("url", c.cfg.URL).Str("participant", participant).Msg("Connecting voice session")
	if err := t.Connect(ctx, c.cfg.URL, token); err != nil {
		return c.failConnect(gen, "connect", fmt.Errorf("connect transport: %w", err))
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		if err := t.Disconnect(ctx); err != nil {
			logger.Warn().Err(err).Msg("Error closing aborted session")
		}
		return ErrConnectAborted
	}
	c.transport = t
	c.done = make(chan struct{})
	err = c.lifecycle.Transition(StateConnected)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.metrics.SessionsActive.Inc()
	logger.Info().Msg("Voice session connected")
	return nil
}

func (c *Coordinator) failConnect(gen uint64, stage string, err error) error {
	c.metrics.RecordSessionError(stage)
	c.logger.Error().Err(err).Str("stage", stage).Msg("Failed to connect voice session")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen {
		c.sessionID = ""
		c.lifecycle.Fail()
	}
	return err
}

// StartListening enables the microphone.
func (c *Coordinator) StartListening(ctx context.Context) error {
	c.mu.Lock()
	state := c.lifecycle.State()
	t := c.transport
	gen := c.generation
	c.mu.Unlock()

	if state == StateListening {
		return nil
	}
	if state != StateConnected || t == nil {
		return ErrNotConnected
	}

	if c.cfg.Audio != nil {
		if err := c.cfg.Audio.Start(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to start audio session")
		}
	}
	if err := t.EnableLocalAudio(ctx, true); err != nil {
		c.metrics.RecordSessionError("listen")
		return fmt.Errorf("enable microphone: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return ErrNotConnected
	}
	if err := c.lifecycle.Transition(StateListening); err != nil {
		return err
	}
	c.drainResponses()
	c.logger.Info().Str("sessionId", c.sessionID).Msg("Microphone enabled")
	return nil
}

// StopListening disables the microphone. No-op when not listening.
func (c *Coordinator) StopListening(ctx context.Context) error {
	c.mu.Lock()
	state := c.lifecycle.State()
	t := c.transport
	gen := c.generation
	c.mu.Unlock()

	if state != StateListening || t == nil {
		return nil
	}
	if err := t.EnableLocalAudio(ctx, false); err != nil {
		return fmt.Errorf("disable microphone: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.lifecycle.State() != StateListening {
		return nil
	}
	c.logger.Info().Str("sessionId", c.sessionID).Msg("Microphone disabled")
	return c.lifecycle.Transition(StateConnected)
}

// Disconnect tears the session down from any state and clears every
// registered callback. Failures along the way are logged, never returned.
func (c *Coordinator) Disconnect(ctx context.Context) {
	c.mu.Lock()
	d := c.detachLocked()
	c.mu.Unlock()

	c.teardown(ctx, d)
	c.logger.Info().Msg("Voice session disconnected")
}

type detached struct {
	transport Transport
	listening bool
	wasActive bool
	sessionID string
	room      string
	done      chan struct{}
}

// detachLocked claims the current session for teardown and invalidates its
// events. Caller holds c.mu and must follow up with teardown.
func (c *Coordinator) detachLocked() detached {
	state := c.lifecycle.State()
	d := detached{
		transport: c.transport,
		listening: state == StateListening,
		wasActive: state.IsActive(),
		sessionID: c.sessionID,
		room:      c.room,
		done:      c.done,
	}
	c.generation++
	c.transport = nil
	c.done = nil
	if state != StateDisconnected {
		if err := c.lifecycle.Transition(StateDisconnecting); err != nil {
			c.lifecycle.Fail()
		}
	}
	return d
}

func (c *Coordinator) teardown(ctx context.Context, d detached) {
	logger := logging.WithSession(d.sessionID, d.room)

	if d.transport != nil && d.listening {
		if err := d.transport.EnableLocalAudio(ctx, false); err != nil {
			logger.Warn().Err(err).Msg("Failed to disable microphone")
		}
	}
	if c.cfg.Audio != nil {
		if err := c.cfg.Audio.Stop(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to stop audio session")
		}
	}
	if d.transport != nil {
		if err := d.transport.Disconnect(ctx); err != nil {
			logger.Warn().Err(err).Msg("Error closing transport")
		}
	}

	c.mu.Lock()
	c.lifecycle.Fail()
	c.sessionID = ""
	c.onResponse = nil
	c.onAgentSpeaking = nil
	c.onDisconnect = nil
	c.onResult = nil
	c.drainResponses()
	c.mu.Unlock()

	if d.done != nil {
		close(d.done)
	}
	if d.wasActive {
		c.metrics.SessionsActive.Dec()
	}
}

// WaitForResponse blocks until the next response text arrives while
// listening. On deadline the microphone is turned off and
// ErrResponseTimeout is returned; the listen is not retried.
func (c *Coordinator) WaitForResponse(ctx context.Context, timeout time.Duration) (string, error) {
	c.mu.Lock()
	if c.lifecycle.State() != StateListening {
		c.mu.Unlock()
		return "", ErrNotConnected
	}
	done := c.done
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case text := <-c.responses:
		return text, nil
	case <-done:
		return "", ErrNotConnected
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		c.metrics.RecordResponseTimeout()
		c.logger.Warn().Dur("timeout", timeout).Msg("No response before deadline, abandoning listen")
		if err := c.StopListening(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to stop listening after timeout")
		}
		return "", ErrResponseTimeout
	}
}

// HandleUtterance runs an utterance through the pipeline as if it had been
// transcribed in the session. It does not require a connection.
func (c *Coordinator) HandleUtterance(ctx context.Context, text string) (models.VoiceCommand, error) {
	if c.cfg.Pipeline == nil {
		return models.VoiceCommand{}, ErrNoPipeline
	}

	cmd, err := c.execute(ctx, text)

	c.mu.Lock()
	onResult := c.onResult
	c.mu.Unlock()
	if onResult != nil {
		onResult(cmd)
	}
	if err != nil {
		c.metrics.RecordSessionError("execute")
		return cmd, err
	}

	if c.cfg.Responder != nil && cmd.Result != nil && cmd.Result.NeedsServerProcessing && cmd.Result.Context != nil {
		// The answer outlives the command deadline and the caller's cancellation.
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.QATimeout)
		answer, aerr := c.cfg.Responder.Answer(qctx, cmd)
		cancel()
		if aerr != nil {
			c.metrics.RecordSessionError("answer")
			c.logger.Warn().Err(aerr).Str("commandId", cmd.ID).Msg("Server answer failed")
		} else if answer != "" {
			c.deliver(answer)
		}
	}
	return cmd, nil
}

func (c *Coordinator) execute(ctx context.Context, text string) (models.VoiceCommand, error) {
	if c.cfg.CommandTimeout <= 0 {
		return c.cfg.Pipeline.Handle(ctx, text)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()
	return c.cfg.Pipeline.Handle(ctx, text)
}

func (c *Coordinator) handleEvent(gen uint64, ev Event) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	onAgentSpeaking := c.onAgentSpeaking
	logger := logging.WithSession(c.sessionID, c.room)
	c.mu.Unlock()

	switch ev.Type {
	case EventConnected:
		logger.Debug().Msg("Transport connected")

	case EventParticipantConnected:
		if ev.FromAgent() {
			logger.Info().Str("participant", ev.Participant).Msg("Voice agent joined")
		} else {
			logger.Debug().Str("participant", ev.Participant).Msg("Participant connected")
		}

	case EventTrackSubscribed, EventTrackUnsubscribed:
		if ev.TrackKind == TrackKindAudio && ev.FromAgent() && onAgentSpeaking != nil {
			onAgentSpeaking(ev.Type == EventTrackSubscribed)
		}

	case EventReconnecting:
		logger.Warn().Msg("Transport reconnecting")

	case EventReconnected:
		logger.Info().Msg("Transport reconnected")

	case EventDisconnected:
		c.handleUnsolicitedDisconnect(gen, ev.Reason)

	case EventTranscription:
		logger.Info().Str("text", ev.Text).Msg("User utterance")
		c.notify(ev.Text)
		if c.cfg.Pipeline != nil {
			if _, err := c.HandleUtterance(context.Background(), ev.Text); err != nil {
				logger.Error().Err(err).Msg("Utterance failed")
			}
		}

	case EventAgentResponse:
		logger.Info().Str("text", ev.Text).Msg("Agent response")
		c.deliver(ev.Text)

	default:
		logger.Debug().Str("type", string(ev.Type)).Msg("Ignoring transport event")
	}
}

func (c *Coordinator) handleUnsolicitedDisconnect(gen uint64, reason string) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	cb := c.onDisconnect
	d := c.detachLocked()
	c.mu.Unlock()

	c.logger.Warn().Str("sessionId", d.sessionID).Str("reason", reason).Msg("Transport disconnected")
	if cb != nil {
		cb()
	}
	c.teardown(context.Background(), d)
}

// notify hands text to the response callback.
func (c *Coordinator) notify(text string) {
	c.mu.Lock()
	cb := c.onResponse
	c.mu.Unlock()

	if cb != nil {
		cb(text)
	}
}

// deliver notifies and also wakes a WaitForResponse caller.
func (c *Coordinator) deliver(text string) {
	c.notify(text)
	select {
	case c.responses <- text:
	default:
		c.logger.Debug().Msg("Response buffer full, dropping")
	}
}

// drainResponses discards buffered responses. Caller holds c.mu.
func (c *Coordinator) drainResponses() {
	for {
		select {
		case <-c.responses:
		default:
			return
		}
	}
}
