package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// Store persists notification records in a local SQLite database so they
// survive restarts. All methods are safe for concurrent use via database/sql.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at the given path. Call
// Close when done.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "notesync.db"
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d", path, separator, defaultBusyTimeout)
}

// Close releases the underlying DB handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			read INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			data TEXT,
			action_url TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_created_at
			ON notifications(created_at DESC);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// Insert persists one notification record.
func (s *Store) Insert(ctx context.Context, n Notification) error {
	var data []byte
	if len(n.Data) > 0 {
		var err error
		data, err = json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal data: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, type, title, message, read, created_at, data, action_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.Type), n.Title, n.Message, boolToInt(n.Read), n.CreatedAt.UTC(), string(data), n.ActionURL)
	return err
}

// MarkRead flips one record to read.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return err
}

// MarkAllRead flips every record to read.
func (s *Store) MarkAllRead(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE read = 0`)
	return err
}

// Delete removes one record.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	return err
}

// List returns all records, newest first.
func (s *Store) List(ctx context.Context) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, title, message, read, created_at, data, action_url
		 FROM notifications ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n         Notification
			kind      string
			read      int
			createdAt time.Time
			data      sql.NullString
			actionURL sql.NullString
		)
		if err := rows.Scan(&n.ID, &kind, &n.Title, &n.Message, &read, &createdAt, &data, &actionURL); err != nil {
			return nil, err
		}
		n.Type = Type(kind)
		n.Read = read != 0
		n.CreatedAt = createdAt
		n.ActionURL = actionURL.String
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &n.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal data for %s: %w", n.ID, err)
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
