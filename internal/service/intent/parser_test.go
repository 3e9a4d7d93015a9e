package intent

import (
	"testing"

	"podcast-voice-service/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		utterance string
		want      models.IntentType
	}{
		{"pause", models.IntentPause},
		{"Stop the episode", models.IntentPause},
		{"play", models.IntentResume},
		{"  Resume please ", models.IntentResume},
		{"continue", models.IntentResume},
		{"go back 15 seconds", models.IntentSeekBackward},
		{"rewind fifteen", models.IntentSeekBackward},
		{"skip forward 15 seconds", models.IntentSeekForward},
		{"jump ahead fifteen seconds", models.IntentSeekForward},
		{"set speed to 1.5", models.IntentSetSpeed},
		{"speed 2", models.IntentSetSpeed},
		{"next chapter", models.IntentNextChapter},
		{"go to the previous chapter", models.IntentPreviousChapter},
		{"last chapter", models.IntentPreviousChapter},
		{"bookmark this", models.IntentBookmark},
		{"save this spot", models.IntentBookmark},
		{"save position", models.IntentBookmark},
		{"show bookmarks", models.IntentShowBookmarks},
		{"list bookmarks", models.IntentShowBookmarks},
		{"what did they just say", models.IntentRewindAndPlay},
		{"what was she say", models.IntentRewindAndPlay},
		{"summarize the last minute", models.IntentSummarize},
		{"give me a summary of the last few minutes", models.IntentSummarize},
		{"explain quantum computing", models.IntentExplain},
		{"what is a transformer", models.IntentExplain},
		{"tell me about the guest", models.IntentExplain},
		{"jump to 12:30", models.IntentJumpTo},
		{"do something weird", models.IntentUnknown},
		{"", models.IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got := Parse(tt.utterance)
			if got.Type != tt.want {
				t.Errorf("Parse(%q).Type = %s, want %s", tt.utterance, got.Type, tt.want)
			}
			if got.Utterance != tt.utterance {
				t.Errorf("expected utterance preserved verbatim, got %q", got.Utterance)
			}
		})
	}
}

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      models.IntentType
	}{
		{"pause prefix beats seeking", "stop and go back 15", models.IntentPause},
		{"backward beats forward", "back and forward 15", models.IntentSeekBackward},
		{"seeking needs fifteen", "go back a bit", models.IntentUnknown},
		{"playback prefix is resume", "playback speed to 2", models.IntentResume},
		{"summary without window is unknown", "summarize this", models.IntentUnknown},
		{"summary without window but what is", "summary of what is happening", models.IntentExplain},
		{"explain beats jump", "what is at jump to 1:00", models.IntentExplain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.utterance).Type; got != tt.want {
				t.Errorf("Parse(%q).Type = %s, want %s", tt.utterance, got, tt.want)
			}
		})
	}
}

func TestParse_Confidence(t *testing.T) {
	high := []string{"pause", "play", "bookmark this", "jump to 1:00", "set speed to 2"}
	for _, u := range high {
		if c := Parse(u).Confidence; c <= 0.8 {
			t.Errorf("Parse(%q).Confidence = %v, want > 0.8", u, c)
		}
	}

	if c := Parse("explain transformers").Confidence; c <= 0.7 {
		t.Errorf("explain confidence = %v, want > 0.7", c)
	}

	unknown := Parse("do something weird")
	if unknown.Confidence != 0 {
		t.Errorf("unknown confidence = %v, want 0", unknown.Confidence)
	}
	if unknown.Recognized() {
		t.Error("unknown intent should not be recognized")
	}
}

func TestParse_Parameters(t *testing.T) {
	speed := Parse("set speed to 1.5")
	if rate, ok := speed.Float(models.ParamRate); !ok || rate != 1.5 {
		t.Errorf("expected rate 1.5, got %v (ok=%v)", rate, ok)
	}

	jump := Parse("jump to 12:30")
	if ts, ok := jump.Int64(models.ParamTimestampMs); !ok || ts != 750000 {
		t.Errorf("expected timestampMs 750000, got %v (ok=%v)", ts, ok)
	}

	explain := Parse("Explain Quantum Computing  ")
	if topic, _ := explain.String(models.ParamTopic); topic != "quantum computing" {
		t.Errorf("expected topic 'quantum computing', got %q", topic)
	}

	bare := Parse("explain")
	if topic, ok := bare.String(models.ParamTopic); !ok || topic != "" {
		t.Errorf("expected empty topic, got %q (ok=%v)", topic, ok)
	}
}

func TestParse_NoParametersIsNil(t *testing.T) {
	for _, u := range []string{"pause", "next chapter", "bookmark this", "do something weird"} {
		if p := Parse(u).Parameters; p != nil {
			t.Errorf("Parse(%q).Parameters = %v, want nil", u, p)
		}
	}
}

func TestTypes(t *testing.T) {
	types := Types()
	if len(types) != 13 {
		t.Fatalf("expected 13 rule intents, got %d", len(types))
	}
	if types[0] != models.IntentPause || types[len(types)-1] != models.IntentJumpTo {
		t.Errorf("unexpected precedence order: %v", types)
	}
}
