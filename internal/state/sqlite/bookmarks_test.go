package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"podcast-voice-service/internal/models"
)

func openTestStore(t *testing.T) *BookmarkStore {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBookmarkStore_ByEpisodeSorted(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, b := range []models.Bookmark{
		{ID: "ep1_3", EpisodeID: "ep1", Timestamp: 90000, CreatedAt: 3},
		{ID: "ep1_1", EpisodeID: "ep1", Timestamp: 30000, CreatedAt: 1, Note: "intro"},
		{ID: "ep2_2", EpisodeID: "ep2", Timestamp: 10000, CreatedAt: 2},
	} {
		if err := s.AddBookmark(ctx, b); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got, err := s.BookmarksByEpisode(ctx, "ep1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(got))
	}
	if got[0].Timestamp != 30000 || got[1].Timestamp != 90000 {
		t.Errorf("expected ascending timestamps, got %d, %d", got[0].Timestamp, got[1].Timestamp)
	}
	if got[0].Note != "intro" || got[1].Note != "" {
		t.Errorf("unexpected notes: %q, %q", got[0].Note, got[1].Note)
	}
}

func TestBookmarkStore_SameIDLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id := models.BookmarkID("ep1", 1700000000000)
	_ = s.AddBookmark(ctx, models.Bookmark{ID: id, EpisodeID: "ep1", Timestamp: 1000, CreatedAt: 1700000000000})
	_ = s.AddBookmark(ctx, models.Bookmark{ID: id, EpisodeID: "ep1", Timestamp: 2000, CreatedAt: 1700000000000})

	got, _ := s.BookmarksByEpisode(ctx, "ep1")
	if len(got) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(got))
	}
	if got[0].Timestamp != 2000 {
		t.Errorf("expected later write to win, got timestamp %d", got[0].Timestamp)
	}
}

func TestBookmarkStore_AllAndRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_ = s.AddBookmark(ctx, models.Bookmark{ID: "a", EpisodeID: "ep1", CreatedAt: 10})
	_ = s.AddBookmark(ctx, models.Bookmark{ID: "b", EpisodeID: "ep2", CreatedAt: 20})

	all, err := s.AllBookmarks(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "b" {
		t.Errorf("expected newest first, got %+v", all)
	}

	if err := s.RemoveBookmark(ctx, "b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveBookmark(ctx, "missing"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	all, _ = s.AllBookmarks(ctx)
	if len(all) != 1 || all[0].ID != "a" {
		t.Errorf("expected only 'a' left, got %+v", all)
	}
}

func TestBookmarkStore_PersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookmarks.sqlite")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.AddBookmark(ctx, models.Bookmark{ID: "x", EpisodeID: "ep1", Timestamp: 5, CreatedAt: 1})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, _ := s.BookmarksByEpisode(ctx, "ep1")
	if len(got) != 1 || got[0].ID != "x" {
		t.Errorf("expected bookmark to persist, got %+v", got)
	}
}
