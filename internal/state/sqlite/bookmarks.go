// Package sqlite persists bookmarks in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/state"
)

const schema = `
	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		episodeId TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		note TEXT,
		createdAt INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS bookmarks_episode ON bookmarks(episodeId, timestamp);
`

// BookmarkStore implements state.BookmarkStore on SQLite.
type BookmarkStore struct {
	db *sql.DB
}

var _ state.BookmarkStore = (*BookmarkStore)(nil)

// Open opens (creating if needed) the database at path. ":memory:" is accepted.
func Open(path string) (*BookmarkStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &BookmarkStore{db: db}, nil
}

// Close closes the database connection.
func (s *BookmarkStore) Close() error {
	return s.db.Close()
}

// AddBookmark inserts b, replacing a bookmark with the same id.
func (s *BookmarkStore) AddBookmark(ctx context.Context, b models.Bookmark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bookmarks (id, episodeId, timestamp, note, createdAt)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.EpisodeID, b.Timestamp, nullString(b.Note), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

// BookmarksByEpisode returns the bookmarks of an episode sorted by timestamp ascending.
func (s *BookmarkStore) BookmarksByEpisode(ctx context.Context, episodeID string) ([]models.Bookmark, error) {
	return s.query(ctx, `
		SELECT id, episodeId, timestamp, note, createdAt
		FROM bookmarks
		WHERE episodeId = ?
		ORDER BY timestamp ASC, createdAt ASC, id ASC
	`, episodeID)
}

// AllBookmarks returns every bookmark, newest first.
func (s *BookmarkStore) AllBookmarks(ctx context.Context) ([]models.Bookmark, error) {
	return s.query(ctx, `
		SELECT id, episodeId, timestamp, note, createdAt
		FROM bookmarks
		ORDER BY createdAt DESC, id ASC
	`)
}

// RemoveBookmark deletes a bookmark by id. Unknown ids are ignored.
func (s *BookmarkStore) RemoveBookmark(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

func (s *BookmarkStore) query(ctx context.Context, q string, args ...any) ([]models.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	var out []models.Bookmark
	for rows.Next() {
		var (
			b    models.Bookmark
			note sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.EpisodeID, &b.Timestamp, &note, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		if note.Valid {
			b.Note = note.String
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
