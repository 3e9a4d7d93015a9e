package state

import (
	"context"
	"testing"

	"podcast-voice-service/internal/models"
)

func TestMemory_ApplyPlayback(t *testing.T) {
	m := NewMemory()

	if got := m.Playback(); got.Rate != 1.0 || got.HasEpisode() {
		t.Fatalf("unexpected initial state: %+v", got)
	}

	ep := "ep-1"
	playing := true
	pos := int64(42000)
	m.ApplyPlayback(models.PlaybackUpdate{EpisodeID: &ep, IsPlaying: &playing, Position: &pos})

	rate := 1.5
	got := m.ApplyPlayback(models.PlaybackUpdate{Rate: &rate})
	if got.EpisodeID != ep || !got.IsPlaying || got.Position != pos || got.Rate != 1.5 {
		t.Errorf("partial update lost fields: %+v", got)
	}
}

func TestMemory_Chapters(t *testing.T) {
	m := NewMemory()
	chapters := []models.Chapter{{StartTime: 0, Title: "Intro"}, {StartTime: 60000, Title: "Main"}}
	m.PutEpisode("ep-1", chapters)

	chapters[0].Title = "mutated"
	got := m.Chapters("ep-1")
	if len(got) != 2 || got[0].Title != "Intro" {
		t.Errorf("expected stored copy, got %+v", got)
	}
	if m.Chapters("other") != nil {
		t.Error("expected nil chapters for unknown episode")
	}
}

func TestMemory_Bookmarks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.AddBookmark(ctx, models.Bookmark{ID: "ep1_2", EpisodeID: "ep1", Timestamp: 50000, CreatedAt: 2})
	_ = m.AddBookmark(ctx, models.Bookmark{ID: "ep1_1", EpisodeID: "ep1", Timestamp: 10000, CreatedAt: 1})
	_ = m.AddBookmark(ctx, models.Bookmark{ID: "ep2_3", EpisodeID: "ep2", Timestamp: 0, CreatedAt: 3})

	got, _ := m.BookmarksByEpisode(ctx, "ep1")
	if len(got) != 2 || got[0].Timestamp != 10000 || got[1].Timestamp != 50000 {
		t.Errorf("expected ascending ep1 bookmarks, got %+v", got)
	}

	all, _ := m.AllBookmarks(ctx)
	if len(all) != 3 || all[0].ID != "ep2_3" || all[2].ID != "ep1_1" {
		t.Errorf("expected newest first, got %+v", all)
	}

	// Same id replaces.
	_ = m.AddBookmark(ctx, models.Bookmark{ID: "ep1_1", EpisodeID: "ep1", Timestamp: 99999, CreatedAt: 1})
	got, _ = m.BookmarksByEpisode(ctx, "ep1")
	if len(got) != 2 || got[1].Timestamp != 99999 {
		t.Errorf("expected last write to win, got %+v", got)
	}

	_ = m.RemoveBookmark(ctx, "ep1_1")
	got, _ = m.BookmarksByEpisode(ctx, "ep1")
	if len(got) != 1 {
		t.Errorf("expected 1 bookmark after remove, got %d", len(got))
	}
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ep := "ep"
	m.ApplyPlayback(models.PlaybackUpdate{EpisodeID: &ep})
	m.PutEpisode(ep, []models.Chapter{{Title: "x"}})
	_ = m.AddBookmark(ctx, models.Bookmark{ID: "1", EpisodeID: ep})

	m.Reset()

	if m.Playback().HasEpisode() || m.Chapters(ep) != nil {
		t.Error("expected playback and chapters cleared")
	}
	if all, _ := m.AllBookmarks(ctx); len(all) != 0 {
		t.Errorf("expected no bookmarks, got %d", len(all))
	}
}
