// Package sqlite keeps session slots in a local SQLite file so a restarted
// process can restore the sessions it handed out.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unionportal/ballot-system/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_slots (
	name       TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store is a SlotStore backed by one SQLite table.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens (creating if needed) the slot database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create session_slots: %w", err)
	}

	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Slot returns the slot called name. Slots are created on first Save.
func (s *Store) Slot(name string) ports.SessionSlot {
	return &slot{store: s, name: name}
}

type slot struct {
	store *Store
	name  string
}

func (sl *slot) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := sl.store.sqlDB.QueryRowContext(ctx,
		`SELECT payload FROM session_slots WHERE name = ?`, sl.name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", sl.name, err)
	}
	return payload, nil
}

func (sl *slot) Save(ctx context.Context, payload []byte) error {
	_, err := sl.store.sqlDB.ExecContext(ctx,
		`INSERT INTO session_slots (name, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		    payload = excluded.payload,
		    updated_at = excluded.updated_at`,
		sl.name, payload, sl.store.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save slot %s: %w", sl.name, err)
	}
	return nil
}

func (sl *slot) Clear(ctx context.Context) error {
	if _, err := sl.store.sqlDB.ExecContext(ctx, `DELETE FROM session_slots WHERE name = ?`, sl.name); err != nil {
		return fmt.Errorf("clear slot %s: %w", sl.name, err)
	}
	return nil
}

// PurgeSlots deletes slots last saved before cutoff.
func (s *Store) PurgeSlots(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM session_slots WHERE updated_at < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge slots: %w", err)
	}
	return res.RowsAffected()
}
