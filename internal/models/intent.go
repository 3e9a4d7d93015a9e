package models

// IntentType is the closed set of player actions an utterance can resolve to.
type IntentType string

const (
	IntentPause           IntentType = "pause"
	IntentResume          IntentType = "resume"
	IntentSeekBackward    IntentType = "seek_backward"
	IntentSeekForward     IntentType = "seek_forward"
	IntentSetSpeed        IntentType = "set_speed"
	IntentNextChapter     IntentType = "next_chapter"
	IntentPreviousChapter IntentType = "previous_chapter"
	IntentBookmark        IntentType = "bookmark"
	IntentShowBookmarks   IntentType = "show_bookmarks"
	IntentRewindAndPlay   IntentType = "rewind_and_play"
	IntentSummarize       IntentType = "summarize"
	IntentExplain         IntentType = "explain"
	IntentQuestion        IntentType = "question"
	IntentJumpTo          IntentType = "jump_to"
	IntentUnknown         IntentType = "unknown"
)

// Parameter keys carried by intents.
const (
	ParamRate        = "rate"
	ParamTopic       = "topic"
	ParamTimestampMs = "timestampMs"
)

// VoiceIntent is the typed interpretation of one utterance.
// Parameters is nil when the matching rule defines none.
type VoiceIntent struct {
	Type       IntentType     `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Utterance  string         `json:"utterance"`
	Confidence float64        `json:"confidence"`
}

// Recognized reports whether any parser rule matched.
func (i VoiceIntent) Recognized() bool {
	return i.Confidence > 0
}

// Float returns a numeric parameter as float64.
func (i VoiceIntent) Float(key string) (float64, bool) {
	switch v := i.Parameters[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Int64 returns a numeric parameter truncated to int64.
func (i VoiceIntent) Int64(key string) (int64, bool) {
	switch v := i.Parameters[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// String returns a string parameter.
func (i VoiceIntent) String(key string) (string, bool) {
	v, ok := i.Parameters[key].(string)
	return v, ok
}
