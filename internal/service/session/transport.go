package session

import (
	"context"
	"strings"

	"podcast-voice-service/internal/models"
)

// TokenIssuer returns a short-lived bearer credential for joining a room.
type TokenIssuer interface {
	Issue(ctx context.Context, room, participant string, pc *models.PodcastContext) (string, error)
}

// EventType identifies a transport lifecycle or data event.
type EventType string

const (
	EventConnected            EventType = "connected"
	EventParticipantConnected EventType = "participant_connected"
	EventTrackSubscribed      EventType = "track_subscribed"
	EventTrackUnsubscribed    EventType = "track_unsubscribed"
	EventReconnecting         EventType = "reconnecting"
	EventReconnected          EventType = "reconnected"
	EventDisconnected         EventType = "disconnected"
	EventTranscription        EventType = "transcription"
	EventAgentResponse        EventType = "agent_response"
)

// TrackKindAudio is the track kind of agent speech.
const TrackKindAudio = "audio"

// Event is emitted by a Transport.
type Event struct {
	Type        EventType `json:"type"`
	Participant string    `json:"participant,omitempty"`
	TrackKind   string    `json:"trackKind,omitempty"`
	Text        string    `json:"text,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// FromAgent reports whether the event's participant is the voice agent.
func (e Event) FromAgent() bool {
	return strings.Contains(e.Participant, "agent")
}

// Transport is one real-time voice session. A Transport is used for a single
// connection; a new one is created per Connect.
type Transport interface {
	// OnEvent registers the event handler. Called before Connect.
	OnEvent(fn func(Event))
	Connect(ctx context.Context, url, token string) error
	// Disconnect closes the session. It must not wait for the event handler
	// to return, since the handler may itself trigger a disconnect.
	Disconnect(ctx context.Context) error
	EnableLocalAudio(ctx context.Context, enabled bool) error
}

// TransportFactory creates a fresh Transport.
type TransportFactory func() Transport

// AudioSession configures the device audio route. All calls are best-effort.
type AudioSession interface {
	Configure(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Pipeline turns an utterance into an executed command.
type Pipeline interface {
	Handle(ctx context.Context, utterance string) (models.VoiceCommand, error)
}

// Responder answers commands that need server-side processing.
type Responder interface {
	Answer(ctx context.Context, cmd models.VoiceCommand) (string, error)
}
