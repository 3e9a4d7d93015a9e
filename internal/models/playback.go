package models

import "fmt"

// PlaybackState is the application's view of the player. The executor reads it
// and mutates it only through partial updates.
type PlaybackState struct {
	EpisodeID string  `json:"episodeId,omitempty"`
	Position  int64   `json:"position"`
	Duration  int64   `json:"duration"`
	IsPlaying bool    `json:"isPlaying"`
	Rate      float64 `json:"rate"`
	Buffering bool    `json:"buffering"`
}

// HasEpisode reports whether an episode is loaded.
func (p PlaybackState) HasEpisode() bool {
	return p.EpisodeID != ""
}

// PlaybackUpdate is a partial update; nil fields are left untouched.
type PlaybackUpdate struct {
	EpisodeID *string  `json:"episodeId,omitempty"`
	IsPlaying *bool    `json:"isPlaying,omitempty"`
	Rate      *float64 `json:"rate,omitempty"`
	Position  *int64   `json:"position,omitempty"`
	Duration  *int64   `json:"duration,omitempty"`
}

// Apply returns p with the non-nil fields of u applied.
func (u PlaybackUpdate) Apply(p PlaybackState) PlaybackState {
	if u.EpisodeID != nil {
		p.EpisodeID = *u.EpisodeID
	}
	if u.IsPlaying != nil {
		p.IsPlaying = *u.IsPlaying
	}
	if u.Rate != nil {
		p.Rate = *u.Rate
	}
	if u.Position != nil {
		p.Position = *u.Position
	}
	if u.Duration != nil {
		p.Duration = *u.Duration
	}
	return p
}

// Chapter is a named time range within an episode.
type Chapter struct {
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime,omitempty"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Bookmark marks a position within an episode.
type Bookmark struct {
	ID        string `json:"id"`
	EpisodeID string `json:"episodeId"`
	Timestamp int64  `json:"timestamp"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// BookmarkID derives a bookmark id from its episode and creation millisecond.
// Two bookmarks created for the same episode in the same millisecond share an
// id and the later one replaces the earlier.
func BookmarkID(episodeID string, createdAtMs int64) string {
	return fmt.Sprintf("%s_%d", episodeID, createdAtMs)
}

// PodcastContext is optional metadata handed to token issuance on connect.
type PodcastContext struct {
	PodcastRSSURL    string `json:"podcastRssUrl,omitempty"`
	EpisodeURL       string `json:"episodeUrl,omitempty"`
	CurrentTimestamp *int64 `json:"currentTimestamp,omitempty"`
}

// IsEmpty reports whether no context field is set.
func (c *PodcastContext) IsEmpty() bool {
	return c == nil || (c.PodcastRSSURL == "" && c.EpisodeURL == "" && c.CurrentTimestamp == nil)
}
