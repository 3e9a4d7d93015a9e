package models

import "time"

// Server-side request kinds carried in ServerContext.Request.
const (
	RequestSummarizeLastMinute = "summarize_last_minute"
)

// ServerContext is the package handed to external processing for
// summarize/explain/question intents.
type ServerContext struct {
	EpisodeID        string              `json:"episodeId"`
	PlayheadMs       int64               `json:"playheadMs"`
	Request          string              `json:"request,omitempty"`
	Query            string              `json:"query,omitempty"`
	TranscriptWindow []TranscriptSegment `json:"transcriptWindow,omitempty"`
}

// CommandResult is the structured outcome of executing an intent.
// Precondition failures are reported with Success=false, never as errors.
type CommandResult struct {
	Success               bool           `json:"success"`
	Message               string         `json:"message,omitempty"`
	NeedsServerProcessing bool           `json:"needsServerProcessing,omitempty"`
	Context               *ServerContext `json:"context,omitempty"`
	Bookmarks             []Bookmark     `json:"bookmarks,omitzero"`
}

// VoiceCommand is one command history record.
type VoiceCommand struct {
	ID        string         `json:"id"`
	Intent    VoiceIntent    `json:"intent"`
	Timestamp int64          `json:"timestamp"`
	Executed  bool           `json:"executed"`
	Result    *CommandResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration"`
}
