// Package models defines the data structures shared by the voice command pipeline.
package models

import (
	"fmt"
	"strings"
)

// TranscriptFormat identifies the textual format a transcript was parsed from.
type TranscriptFormat string

const (
	FormatSRT  TranscriptFormat = "srt"
	FormatVTT  TranscriptFormat = "vtt"
	FormatJSON TranscriptFormat = "json"
)

// ParseFormat accepts a short format name or a transcript MIME type as found in feeds.
func ParseFormat(s string) (TranscriptFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "srt", "application/srt", "application/x-subrip":
		return FormatSRT, nil
	case "vtt", "text/vtt":
		return FormatVTT, nil
	case "json", "application/json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported transcript format: %q", s)
	}
}

// TranscriptSegment is a single time-bounded unit of transcript text.
// EndTime is an exclusive upper bound and StartTime < EndTime.
type TranscriptSegment struct {
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Text      string `json:"text"`
	Speaker   string `json:"speaker,omitempty"`
}

// Transcript holds every segment of one episode. It is replaced wholesale on re-fetch.
type Transcript struct {
	EpisodeID   string              `json:"episodeId"`
	Segments    []TranscriptSegment `json:"segments"`
	Format      TranscriptFormat    `json:"format"`
	LastUpdated int64               `json:"lastUpdated"`
}
