package models

// Event types published to Kafka.
const (
	EventCommandExecuted = "voice.command.executed"
	EventCommandFailed   = "voice.command.failed"
	EventServerRequested = "voice.qa.requested"
)

// CommandEvent is published for every command appended to history.
type CommandEvent struct {
	EventType  string     `json:"eventType"`
	CommandID  string     `json:"commandId"`
	EpisodeID  string     `json:"episodeId,omitempty"`
	Intent     IntentType `json:"intent"`
	Utterance  string     `json:"utterance"`
	Confidence float64    `json:"confidence"`
	Executed   bool       `json:"executed"`
	Success    bool       `json:"success"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	Timestamp  int64      `json:"timestamp"`
	DurationMs int64      `json:"durationMs"`
}

// ServerRequestEvent hands a summarize/explain/question context to external processing.
type ServerRequestEvent struct {
	EventType string        `json:"eventType"`
	CommandID string        `json:"commandId"`
	Intent    IntentType    `json:"intent"`
	Context   ServerContext `json:"context"`
	Timestamp int64         `json:"timestamp"`
}

// NewCommandEvent builds the event for a finished history record.
func NewCommandEvent(cmd VoiceCommand, episodeID string) CommandEvent {
	ev := CommandEvent{
		EventType:  EventCommandExecuted,
		CommandID:  cmd.ID,
		EpisodeID:  episodeID,
		Intent:     cmd.Intent.Type,
		Utterance:  cmd.Intent.Utterance,
		Confidence: cmd.Intent.Confidence,
		Executed:   cmd.Executed,
		Error:      cmd.Error,
		Timestamp:  cmd.Timestamp,
		DurationMs: cmd.Duration.Milliseconds(),
	}
	if cmd.Error != "" {
		ev.EventType = EventCommandFailed
	}
	if cmd.Result != nil {
		ev.Success = cmd.Result.Success
		ev.Message = cmd.Result.Message
	}
	return ev
}
