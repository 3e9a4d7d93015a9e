package transcript

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/logging"
	"podcast-voice-service/internal/observability/metrics"
)

// Store owns one transcript per episode. Loading a transcript for an episode
// replaces the previous one; segments are never merged.
// Thread-safe for concurrent access.
type Store struct {
	mu          sync.RWMutex
	transcripts map[string]*models.Transcript

	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewStore creates an empty transcript store. A nil metrics uses the defaults.
func NewStore(m *metrics.Metrics) *Store {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Store{
		transcripts: make(map[string]*models.Transcript),
		metrics:     m,
		logger:      logging.WithComponent("transcript"),
		now:         time.Now,
	}
}

// Load parses raw text and stores the result for episodeID.
// On a FormatError the previously stored transcript is kept.
func (s *Store) Load(episodeID, raw string, format models.TranscriptFormat) (*models.Transcript, error) {
	segments, stats, err := ParseWithStats(raw, format)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("episodeId", episodeID).
			Str("format", string(format)).
			Msg("Transcript rejected")
		return nil, err
	}

	t := &models.Transcript{
		EpisodeID:   episodeID,
		Segments:    segments,
		Format:      format,
		LastUpdated: s.now().UnixMilli(),
	}
	s.Put(t)
	s.metrics.RecordTranscriptLoaded(string(format), stats.Skipped)

	s.logger.Info().
		Str("episodeId", episodeID).
		Str("format", string(format)).
		Int("segments", len(segments)).
		Int("skipped", stats.Skipped).
		Msg("Transcript loaded")
	return t, nil
}

// Put stores t, replacing any transcript for the same episode.
func (s *Store) Put(t *models.Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[t.EpisodeID] = t
}

// Get returns the transcript for episodeID.
func (s *Store) Get(episodeID string) (*models.Transcript, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transcripts[episodeID]
	return t, ok
}

// Delete removes the transcript for episodeID.
func (s *Store) Delete(episodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, episodeID)
}

// Len returns the number of stored transcripts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcripts)
}

// SegmentAt answers SegmentAt for a stored episode.
func (s *Store) SegmentAt(episodeID string, timestampMs int64) (models.TranscriptSegment, bool) {
	s.metrics.RecordTranscriptQuery("segment_at")
	t, _ := s.Get(episodeID)
	return SegmentAt(t, timestampMs)
}

// SegmentsNear answers SegmentsNear for a stored episode.
func (s *Store) SegmentsNear(episodeID string, timestampMs, windowMs int64) []models.TranscriptSegment {
	s.metrics.RecordTranscriptQuery("segments_near")
	t, _ := s.Get(episodeID)
	return SegmentsNear(t, timestampMs, windowMs)
}

// Search answers Search for a stored episode.
func (s *Store) Search(episodeID, query string) []models.TranscriptSegment {
	s.metrics.RecordTranscriptQuery("search")
	t, _ := s.Get(episodeID)
	return Search(t, query)
}
