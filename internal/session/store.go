package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"scout/internal/config"
	"scout/internal/scrape"
)

// Store journals session snapshots to SQLite. The in-memory registry stays
// authoritative; the journal exists so `scout sessions` and the status API
// can report recent history after a daemon restart.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the session journal and applies
// migrations.
func OpenStore(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the journal file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Upsert writes the snapshot, replacing any previous row for the session.
func (s *Store) Upsert(ctx context.Context, snap Snapshot) error {
	requestJSON, err := json.Marshal(snap.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
            id, request_json, state, dir, created_at, expires_at, updated_at,
            primary_count, secondary_count, selected_index, error_message, last_sequence
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            request_json = excluded.request_json,
            state = excluded.state,
            dir = excluded.dir,
            expires_at = excluded.expires_at,
            updated_at = excluded.updated_at,
            primary_count = excluded.primary_count,
            secondary_count = excluded.secondary_count,
            selected_index = excluded.selected_index,
            error_message = excluded.error_message,
            last_sequence = excluded.last_sequence`,
		snap.ID,
		string(requestJSON),
		string(snap.State),
		snap.Dir,
		snap.CreatedAt.Format(time.RFC3339Nano),
		snap.ExpiresAt.Format(time.RFC3339Nano),
		snap.UpdatedAt.Format(time.RFC3339Nano),
		snap.PrimaryCount,
		snap.SecondaryCount,
		snap.SelectedIndex,
		snap.ErrorMessage,
		snap.LastSequence,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Get fetches one journaled snapshot. Returns sql.ErrNoRows when absent.
func (s *Store) Get(ctx context.Context, id string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM sessions WHERE id = ?", id)
	return scanSnapshot(row)
}

// List returns every journaled snapshot ordered by creation time, newest
// first.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM sessions ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Delete removes a journaled session. Deleting an unknown ID is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes journaled sessions whose deadline is before now and
// reports how many were dropped.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?", now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

const selectColumns = `SELECT id, request_json, state, dir, created_at, expires_at, updated_at,
    primary_count, secondary_count, selected_index, error_message, last_sequence`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var (
		snap        Snapshot
		requestJSON string
		state       string
		createdAt   string
		expiresAt   string
		updatedAt   string
	)
	err := row.Scan(
		&snap.ID,
		&requestJSON,
		&state,
		&snap.Dir,
		&createdAt,
		&expiresAt,
		&updatedAt,
		&snap.PrimaryCount,
		&snap.SecondaryCount,
		&snap.SelectedIndex,
		&snap.ErrorMessage,
		&snap.LastSequence,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("scan session: %w", err)
	}

	var req scrape.Request
	if err := json.Unmarshal([]byte(requestJSON), &req); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal request: %w", err)
	}
	snap.Request = req
	snap.State = State(state)

	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Snapshot{}, fmt.Errorf("parse created_at: %w", err)
	}
	if snap.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return Snapshot{}, fmt.Errorf("parse expires_at: %w", err)
	}
	if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Snapshot{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return snap, nil
}
