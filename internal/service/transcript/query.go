package transcript

import (
	"cmp"
	"slices"
	"strings"

	"podcast-voice-service/internal/models"
)

// DefaultContextWindowMs is the half-width used by SegmentsNear when none is given.
const DefaultContextWindowMs int64 = 120000

// SegmentAt returns the first segment, in array order, whose range covers
// timestampMs (both bounds inclusive). Overlapping segments resolve to the
// earliest in the slice.
func SegmentAt(t *models.Transcript, timestampMs int64) (models.TranscriptSegment, bool) {
	if t == nil {
		return models.TranscriptSegment{}, false
	}
	for _, seg := range t.Segments {
		if seg.StartTime <= timestampMs && timestampMs <= seg.EndTime {
			return seg, true
		}
	}
	return models.TranscriptSegment{}, false
}

// SegmentsNear returns every segment fully contained in
// [timestampMs-windowMs, timestampMs+windowMs], ordered by start time.
// Segments that only partially overlap the window are excluded.
func SegmentsNear(t *models.Transcript, timestampMs, windowMs int64) []models.TranscriptSegment {
	if t == nil {
		return nil
	}
	if windowMs <= 0 {
		windowMs = DefaultContextWindowMs
	}
	lo, hi := timestampMs-windowMs, timestampMs+windowMs

	var out []models.TranscriptSegment
	for _, seg := range t.Segments {
		if seg.StartTime >= lo && seg.EndTime <= hi {
			out = append(out, seg)
		}
	}
	return byTime(out)
}

// Search returns segments whose text contains query, ignoring case, ordered by start time.
func Search(t *models.Transcript, query string) []models.TranscriptSegment {
	if t == nil {
		return nil
	}
	needle := strings.ToLower(query)

	var out []models.TranscriptSegment
	for _, seg := range t.Segments {
		if strings.Contains(strings.ToLower(seg.Text), needle) {
			out = append(out, seg)
		}
	}
	return byTime(out)
}

// byTime sorts segments by start then end time. Equal ranges keep array order.
func byTime(segs []models.TranscriptSegment) []models.TranscriptSegment {
	slices.SortStableFunc(segs, func(a, b models.TranscriptSegment) int {
		return cmp.Or(cmp.Compare(a.StartTime, b.StartTime), cmp.Compare(a.EndTime, b.EndTime))
	})
	return segs
}
