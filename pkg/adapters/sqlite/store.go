// Package sqlite stores layouts in a single SQLite database file using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/railyard/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS layouts (
	id           TEXT PRIMARY KEY,
	track_system TEXT NOT NULL,
	body         TEXT NOT NULL,
	updated_at   INTEGER NOT NULL
)`

// Store implements ports.LayoutStore on SQLite. The layout is kept as a JSON
// document; the track system is a column so it can be queried directly.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. Use ":memory:" for tests.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" on one database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts or replaces the layout.
func (s *Store) Save(ctx context.Context, layoutID string, layout *domain.Layout) error {
	body, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO layouts (id, track_system, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET track_system = excluded.track_system, body = excluded.body, updated_at = excluded.updated_at`,
		layoutID, layout.TrackSystem, string(body), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save layout %s: %w", layoutID, err)
	}
	return nil
}

// Load reads one layout.
func (s *Store) Load(ctx context.Context, layoutID string) (*domain.Layout, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM layouts WHERE id = ?`, layoutID).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLayoutNotFound, layoutID)
		}
		return nil, fmt.Errorf("failed to load layout %s: %w", layoutID, err)
	}

	var layout domain.Layout
	if err := json.Unmarshal([]byte(body), &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout: %w", err)
	}
	return &layout, nil
}

// Delete removes a layout.
func (s *Store) Delete(ctx context.Context, layoutID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE id = ?`, layoutID); err != nil {
		return fmt.Errorf("failed to delete layout %s: %w", layoutID, err)
	}
	return nil
}

// List returns all layout IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM layouts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
