// Package state holds the application state the voice pipeline reads and
// mutates: the playback snapshot, per-episode chapters and bookmarks.
package state

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"podcast-voice-service/internal/models"
)

// BookmarkStore is the bookmark collection keyed by episode.
// Adding a bookmark whose id already exists replaces it.
type BookmarkStore interface {
	AddBookmark(ctx context.Context, b models.Bookmark) error
	BookmarksByEpisode(ctx context.Context, episodeID string) ([]models.Bookmark, error)
	AllBookmarks(ctx context.Context) ([]models.Bookmark, error)
	RemoveBookmark(ctx context.Context, id string) error
}

// Memory is an in-process application state. Safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	playback  models.PlaybackState
	chapters  map[string][]models.Chapter
	bookmarks map[string]models.Bookmark
}

var _ BookmarkStore = (*Memory)(nil)

// NewMemory creates an empty state with playback rate 1.0.
func NewMemory() *Memory {
	m := &Memory{}
	m.Reset()
	return m
}

// Reset returns the state to its initial values.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playback = models.PlaybackState{Rate: 1.0}
	m.chapters = make(map[string][]models.Chapter)
	m.bookmarks = make(map[string]models.Bookmark)
}

// Playback returns the current playback snapshot.
func (m *Memory) Playback() models.PlaybackState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playback
}

// ApplyPlayback applies a partial update and returns the new snapshot.
func (m *Memory) ApplyPlayback(u models.PlaybackUpdate) models.PlaybackState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playback = u.Apply(m.playback)
	return m.playback
}

// PutEpisode sets the chapter list of an episode. Chapters are kept in the
// given order, which navigation assumes is ascending by start time.
func (m *Memory) PutEpisode(episodeID string, chapters []models.Chapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chapters[episodeID] = append([]models.Chapter(nil), chapters...)
}

// Chapters returns the chapter list of an episode, or nil.
func (m *Memory) Chapters(episodeID string) []models.Chapter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Chapter(nil), m.chapters[episodeID]...)
}

// AddBookmark stores b, replacing any bookmark with the same id.
func (m *Memory) AddBookmark(_ context.Context, b models.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookmarks[b.ID] = b
	return nil
}

// BookmarksByEpisode returns the bookmarks of an episode sorted by timestamp ascending.
func (m *Memory) BookmarksByEpisode(_ context.Context, episodeID string) ([]models.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Bookmark
	for _, b := range m.bookmarks {
		if b.EpisodeID == episodeID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b models.Bookmark) int {
		return cmp.Or(
			cmp.Compare(a.Timestamp, b.Timestamp),
			cmp.Compare(a.CreatedAt, b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

// AllBookmarks returns every bookmark, newest first.
func (m *Memory) AllBookmarks(_ context.Context) ([]models.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Bookmark, 0, len(m.bookmarks))
	for _, b := range m.bookmarks {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b models.Bookmark) int {
		return cmp.Or(cmp.Compare(b.CreatedAt, a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// RemoveBookmark deletes a bookmark by id. Unknown ids are ignored.
func (m *Memory) RemoveBookmark(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookmarks, id)
	return nil
}
