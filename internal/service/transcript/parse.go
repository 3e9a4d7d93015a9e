// Package transcript parses subtitle-style and JSON transcripts into
// time-ordered segments and answers point, window and text queries over them.
package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"podcast-voice-service/internal/models"
)

// ErrUnrecognizedFormat is matched by every FormatError.
var ErrUnrecognizedFormat = errors.New("unrecognized transcript format")

// FormatError is fatal to a single transcript: the input shape is not one we parse.
type FormatError struct {
	Format models.TranscriptFormat
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s transcript: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s transcript: %s", e.Format, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrUnrecognizedFormat }

// ParseStats describes a best-effort parse.
type ParseStats struct {
	Blocks  int
	Skipped int
}

var (
	blockSeparator = regexp.MustCompile(`\n\n+`)
	srtTiming      = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)
	vttTiming      = regexp.MustCompile(`(?:(\d{2,}):)?(\d{2}):(\d{2})[.,](\d{3})\s*-->\s*(?:(\d{2,}):)?(\d{2}):(\d{2})[.,](\d{3})`)
)

// Parse converts raw transcript text into segments in source order.
// Malformed blocks and entries are skipped; only an unrecognized JSON shape fails.
func Parse(raw string, format models.TranscriptFormat) ([]models.TranscriptSegment, error) {
	segments, _, err := ParseWithStats(raw, format)
	return segments, err
}

// ParseWithStats is Parse that also reports how many blocks were skipped.
func ParseWithStats(raw string, format models.TranscriptFormat) ([]models.TranscriptSegment, ParseStats, error) {
	switch format {
	case models.FormatSRT:
		segs, stats := parseSRT(raw)
		return segs, stats, nil
	case models.FormatVTT:
		segs, stats := parseVTT(raw)
		return segs, stats, nil
	case models.FormatJSON:
		return parseJSON(raw)
	default:
		return nil, ParseStats{}, &FormatError{Format: format, Reason: "unsupported format"}
	}
}

func splitBlocks(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return blockSeparator.Split(raw, -1)
}

// parseSRT expects: index line, timing line, one or more text lines.
func parseSRT(raw string) ([]models.TranscriptSegment, ParseStats) {
	var (
		segments []models.TranscriptSegment
		stats    ParseStats
	)
	for i, block := range splitBlocks(raw) {
		stats.Blocks++
		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			skip(&stats, models.FormatSRT, i, "fewer than 3 lines")
			continue
		}
		m := srtTiming.FindStringSubmatch(lines[1])
		if m == nil {
			skip(&stats, models.FormatSRT, i, "unparsable timing line")
			continue
		}
		start := clockMs(m[1], m[2], m[3], m[4])
		end := clockMs(m[5], m[6], m[7], m[8])
		if end <= start {
			skip(&stats, models.FormatSRT, i, "end not after start")
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			StartTime: start,
			EndTime:   end,
			Text:      strings.Join(lines[2:], " "),
		})
	}
	return segments, stats
}

// parseVTT accepts WebVTT cues: optional identifier line, timing line with
// optional hours, then text. Header, NOTE and STYLE blocks are ignored.
func parseVTT(raw string) ([]models.TranscriptSegment, ParseStats) {
	var (
		segments []models.TranscriptSegment
		stats    ParseStats
	)
	for i, block := range splitBlocks(raw) {
		lines := strings.Split(block, "\n")
		head := strings.TrimSpace(lines[0])
		if strings.HasPrefix(head, "WEBVTT") || strings.HasPrefix(head, "NOTE") ||
			strings.HasPrefix(head, "STYLE") || strings.HasPrefix(head, "REGION") {
			continue
		}
		stats.Blocks++

		timing := -1
		for j, line := range lines {
			if strings.Contains(line, "-->") {
				timing = j
				break
			}
		}
		if timing < 0 || timing > 1 || timing == len(lines)-1 {
			skip(&stats, models.FormatVTT, i, "missing timing or text")
			continue
		}
		m := vttTiming.FindStringSubmatch(lines[timing])
		if m == nil {
			skip(&stats, models.FormatVTT, i, "unparsable timing line")
			continue
		}
		start := clockMs(m[1], m[2], m[3], m[4])
		end := clockMs(m[5], m[6], m[7], m[8])
		if end <= start {
			skip(&stats, models.FormatVTT, i, "end not after start")
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			StartTime: start,
			EndTime:   end,
			Text:      strings.Join(lines[timing+1:], " "),
		})
	}
	return segments, stats
}

// jsonEntry accepts both the plain {start,end,text} shape and the
// Podcasting 2.0 {startTime,endTime,body} shape. Times are in seconds.
type jsonEntry struct {
	Start     *float64 `json:"start"`
	End       *float64 `json:"end"`
	StartTime *float64 `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
	Text      *string  `json:"text"`
	Body      *string  `json:"body"`
	Speaker   string   `json:"speaker"`
}

func parseJSON(raw string) ([]models.TranscriptSegment, ParseStats, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return nil, ParseStats{}, &FormatError{Format: models.FormatJSON, Reason: "empty document"}
	}

	var entries []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, ParseStats{}, &FormatError{Format: models.FormatJSON, Reason: "invalid array", Err: err}
		}
	case '{':
		var doc struct {
			Segments json.RawMessage `json:"segments"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, ParseStats{}, &FormatError{Format: models.FormatJSON, Reason: "invalid object", Err: err}
		}
		if len(doc.Segments) == 0 || doc.Segments[0] != '[' {
			return nil, ParseStats{}, &FormatError{Format: models.FormatJSON, Reason: "object without segments array"}
		}
		if err := json.Unmarshal(doc.Segments, &entries); err != nil {
			return nil, ParseStats{}, &FormatError{Format: models.FormatJSON, Reason: "invalid segments array", Err: err}
		}
	default:
		return nil, ParseStats{}, &FormatError{Format: models.FormatJSON, Reason: "expected object or array"}
	}

	var (
		segments []models.TranscriptSegment
		stats    ParseStats
	)
	for i, rawEntry := range entries {
		stats.Blocks++
		var e jsonEntry
		if err := json.Unmarshal(rawEntry, &e); err != nil {
			skip(&stats, models.FormatJSON, i, "entry is not an object")
			continue
		}
		start, end, text := firstFloat(e.Start, e.StartTime), firstFloat(e.End, e.EndTime), firstString(e.Text, e.Body)
		if start == nil || end == nil || text == nil {
			skip(&stats, models.FormatJSON, i, "missing start, end or text")
			continue
		}
		startMs, endMs := secondsToMs(*start), secondsToMs(*end)
		if endMs <= startMs {
			skip(&stats, models.FormatJSON, i, "end not after start")
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			StartTime: startMs,
			EndTime:   endMs,
			Text:      *text,
			Speaker:   e.Speaker,
		})
	}
	return segments, stats, nil
}

func skip(stats *ParseStats, format models.TranscriptFormat, block int, reason string) {
	stats.Skipped++
	log.Debug().
		Str("component", "transcript").
		Str("format", string(format)).
		Int("block", block).
		Str("reason", reason).
		Msg("Skipping malformed transcript block")
}

func clockMs(h, m, s, ms string) int64 {
	return atoi(h)*3600000 + atoi(m)*60000 + atoi(s)*1000 + atoi(ms)
}

func atoi(s string) int64 {
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func secondsToMs(s float64) int64 {
	return int64(math.Round(s * 1000))
}

func firstFloat(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstString(vs ...*string) *string {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}
