package transcript

import (
	"errors"
	"testing"

	"podcast-voice-service/internal/models"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:05,500
Welcome to the show.

2
00:00:05,500 --> 00:00:12,000
Today we discuss AI and machine learning.

3
00:00:12,000 --> 00:00:18,500
Let's dive into the technical details.`

func TestParse_SRT(t *testing.T) {
	segments, err := Parse(sampleSRT, models.FormatSRT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].StartTime != 0 || segments[0].EndTime != 5500 {
		t.Errorf("expected first segment [0,5500], got [%d,%d]", segments[0].StartTime, segments[0].EndTime)
	}
	if segments[0].Text != "Welcome to the show." {
		t.Errorf("unexpected first text: %q", segments[0].Text)
	}
	if segments[1].StartTime != 5500 {
		t.Errorf("expected second start 5500, got %d", segments[1].StartTime)
	}
	if segments[2].EndTime != 18500 {
		t.Errorf("expected third end 18500, got %d", segments[2].EndTime)
	}
}

func TestParse_SRT_DotSeparatorAndHours(t *testing.T) {
	raw := "7\n01:02:03.004 --> 01:02:04.500\nLate in the episode"

	segments, err := Parse(raw, models.FormatSRT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	want := int64(1*3600000 + 2*60000 + 3*1000 + 4)
	if segments[0].StartTime != want {
		t.Errorf("expected start %d, got %d", want, segments[0].StartTime)
	}
}

func TestParse_SRT_MultiLineTextJoined(t *testing.T) {
	raw := "1\n00:00:01,000 --> 00:00:02,000\nfirst line\nsecond line"

	segments, _ := Parse(raw, models.FormatSRT)
	if len(segments) != 1 || segments[0].Text != "first line second line" {
		t.Fatalf("expected joined text, got %+v", segments)
	}
}

func TestParse_SRT_SkipsMalformedBlocks(t *testing.T) {
	raw := "1\n00:00:00,000 --> 00:00:01,000\nok\n\n" +
		"2\nnot a timing line\ntext\n\n" +
		"3\n00:00:02,000 --> 00:00:03,000\n\n" +
		"4\n00:00:05,000 --> 00:00:04,000\nbackwards\n\n" +
		"5\n00:00:06,000 --> 00:00:07,000\nalso ok"

	segments, stats, err := ParseWithStats(raw, models.FormatSRT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segments), segments)
	}
	if segments[0].Text != "ok" || segments[1].Text != "also ok" {
		t.Errorf("unexpected texts: %q, %q", segments[0].Text, segments[1].Text)
	}
	if stats.Skipped != 3 {
		t.Errorf("expected 3 skipped blocks, got %d", stats.Skipped)
	}
}

func TestParse_SRT_CRLF(t *testing.T) {
	raw := "1\r\n00:00:00,000 --> 00:00:01,000\r\nhello\r\n\r\n2\r\n00:00:01,000 --> 00:00:02,000\r\nworld\r\n"

	segments, _ := Parse(raw, models.FormatSRT)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[1].Text != "world" {
		t.Errorf("expected 'world', got %q", segments[1].Text)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, f := range []models.TranscriptFormat{models.FormatSRT, models.FormatVTT} {
		segments, err := Parse("   \n\n ", f)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", f, err)
		}
		if len(segments) != 0 {
			t.Errorf("%s: expected no segments, got %d", f, len(segments))
		}
	}
}

func TestParse_VTT(t *testing.T) {
	raw := `WEBVTT

NOTE produced by the host

intro
00:00.000 --> 00:04.250
Hello and welcome.

00:00:04.250 --> 00:00:09.000
<v Host>Second cue without an id.`

	segments, err := Parse(raw, models.FormatVTT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segments), segments)
	}
	if segments[0].EndTime != 4250 {
		t.Errorf("expected first end 4250, got %d", segments[0].EndTime)
	}
	if segments[1].StartTime != 4250 || segments[1].EndTime != 9000 {
		t.Errorf("unexpected second range [%d,%d]", segments[1].StartTime, segments[1].EndTime)
	}
}

func TestParse_JSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"object with segments", `{"segments":[{"start":0,"end":1.5,"text":"a","speaker":"Ann"},{"start":1.5,"end":3,"text":"b"}]}`, 2},
		{"bare array", `[{"start":0,"end":1,"text":"a"}]`, 1},
		{"podcasting 2.0 names", `{"version":"1.0.0","segments":[{"startTime":0.5,"endTime":1.25,"body":"hi"}]}`, 1},
		{"malformed entries skipped", `[{"start":0,"end":1,"text":"a"},{"start":2},"oops",{"start":3,"end":2,"text":"back"}]`, 1},
		{"empty array", `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := Parse(tt.raw, models.FormatJSON)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(segments) != tt.want {
				t.Errorf("expected %d segments, got %d", tt.want, len(segments))
			}
		})
	}
}

func TestParse_JSON_SecondsToMilliseconds(t *testing.T) {
	segments, err := Parse(`{"segments":[{"start":1.5,"end":2.25,"text":"x","speaker":"Guest"}]}`, models.FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := segments[0]
	if got.StartTime != 1500 || got.EndTime != 2250 {
		t.Errorf("expected [1500,2250], got [%d,%d]", got.StartTime, got.EndTime)
	}
	if got.Speaker != "Guest" {
		t.Errorf("expected speaker 'Guest', got %q", got.Speaker)
	}
}

func TestParse_JSON_UnrecognizedShape(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"object without segments", `{"items":[]}`},
		{"segments not array", `{"segments":{"start":0}}`},
		{"scalar", `42`},
		{"invalid json", `{"segments":[`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, models.FormatJSON)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrUnrecognizedFormat) {
				t.Errorf("expected ErrUnrecognizedFormat, got %v", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Errorf("expected *FormatError, got %T", err)
			}
		})
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse("x", models.TranscriptFormat("ass"))
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Errorf("expected ErrUnrecognizedFormat, got %v", err)
	}
}
