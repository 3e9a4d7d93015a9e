// Package intent maps transcribed utterances to typed player intents.
//
// Parsing is an ordered cascade of pattern rules where the first match wins.
// Confidence is a fixed per-rule constant; callers treat any value above zero
// as "recognized".
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"podcast-voice-service/internal/models"
)

// rule is one entry in the cascade. match receives the lowercased, trimmed
// utterance and returns the intent parameters (nil when the rule has none).
type rule struct {
	intent     models.IntentType
	confidence float64
	match      func(lower string) (map[string]any, bool)
}

var (
	pausePrefix    = regexp.MustCompile(`^(pause|stop)`)
	resumePrefix   = regexp.MustCompile(`^(play|resume|continue)`)
	backwardWord   = regexp.MustCompile(`back|rewind|backward`)
	forwardWord    = regexp.MustCompile(`forward|ahead`)
	fifteen        = regexp.MustCompile(`15|fifteen`)
	speedPattern   = regexp.MustCompile(`(?:set )?speed (?:to )?(\d+\.?\d*)`)
	nextChapter    = regexp.MustCompile(`next chapter`)
	prevChapter    = regexp.MustCompile(`previous chapter|last chapter`)
	bookmarkThis   = regexp.MustCompile(`bookmark this|save (?:this )?(?:spot|position)`)
	showBookmarks  = regexp.MustCompile(`show bookmarks|list bookmarks`)
	whatDidTheySay = regexp.MustCompile(`what (?:did|was) (?:they|he|she) (?:just )?say`)
	summaryWord    = regexp.MustCompile(`summarize|summary`)
	lastMinute     = regexp.MustCompile(`last (?:minute|few minutes)`)
	explainWord    = regexp.MustCompile(`explain|what is|what's|tell me about`)
	explainTopic   = regexp.MustCompile(`(?:explain|what is|what's|tell me about) (.+)`)
	jumpPattern    = regexp.MustCompile(`jump to (\d+):(\d+)`)
)

// rules is evaluated top to bottom. Order is part of the contract: several
// rules can match the same utterance.
var rules = []rule{
	{models.IntentPause, 0.9, matches(pausePrefix)},
	{models.IntentResume, 0.9, matches(resumePrefix)},
	{models.IntentSeekBackward, 0.85, matchesAll(backwardWord, fifteen)},
	{models.IntentSeekForward, 0.85, matchesAll(forwardWord, fifteen)},
	{models.IntentSetSpeed, 0.9, matchSpeed},
	{models.IntentNextChapter, 0.85, matches(nextChapter)},
	{models.IntentPreviousChapter, 0.85, matches(prevChapter)},
	{models.IntentBookmark, 0.9, matches(bookmarkThis)},
	{models.IntentShowBookmarks, 0.9, matches(showBookmarks)},
	{models.IntentRewindAndPlay, 0.85, matches(whatDidTheySay)},
	{models.IntentSummarize, 0.8, matchesAll(summaryWord, lastMinute)},
	{models.IntentExplain, 0.75, matchExplain},
	{models.IntentJumpTo, 0.9, matchJump},
}

// Parse resolves an utterance to an intent. It is pure and safe for
// concurrent use. The returned Utterance is the input verbatim.
func Parse(utterance string) models.VoiceIntent {
	lower := strings.ToLower(strings.TrimSpace(utterance))

	for _, r := range rules {
		if params, ok := r.match(lower); ok {
			return models.VoiceIntent{
				Type:       r.intent,
				Parameters: params,
				Utterance:  utterance,
				Confidence: r.confidence,
			}
		}
	}
	return models.VoiceIntent{
		Type:       models.IntentUnknown,
		Utterance:  utterance,
		Confidence: 0,
	}
}

// Types lists every intent a rule can produce, in precedence order.
func Types() []models.IntentType {
	out := make([]models.IntentType, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.intent)
	}
	return out
}

func matches(re *regexp.Regexp) func(string) (map[string]any, bool) {
	return func(lower string) (map[string]any, bool) {
		return nil, re.MatchString(lower)
	}
}

func matchesAll(res ...*regexp.Regexp) func(string) (map[string]any, bool) {
	return func(lower string) (map[string]any, bool) {
		for _, re := range res {
			if !re.MatchString(lower) {
				return nil, false
			}
		}
		return nil, true
	}
}

func matchSpeed(lower string) (map[string]any, bool) {
	m := speedPattern.FindStringSubmatch(lower)
	if m == nil {
		return nil, false
	}
	rate, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, false
	}
	return map[string]any{models.ParamRate: rate}, true
}

func matchExplain(lower string) (map[string]any, bool) {
	if !explainWord.MatchString(lower) {
		return nil, false
	}
	topic := ""
	if m := explainTopic.FindStringSubmatch(lower); m != nil {
		topic = strings.TrimSpace(m[1])
	}
	return map[string]any{models.ParamTopic: topic}, true
}

func matchJump(lower string) (map[string]any, bool) {
	m := jumpPattern.FindStringSubmatch(lower)
	if m == nil {
		return nil, false
	}
	minutes, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, false
	}
	seconds, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return nil, false
	}
	return map[string]any{models.ParamTimestampMs: (minutes*60 + seconds) * 1000}, true
}
