package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"
)

const (
	busyRetries  = 5
	busyInterval = 50 * time.Millisecond
)

// SQLiteStore implements SessionStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex // serializes writes to avoid SQLITE_BUSY
	logger *slog.Logger
}

// NewSQLite opens or creates the session database at dbPath.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single-row table does not need a pool.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		display_name TEXT NOT NULL,
		logged_in_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadSession retrieves the persisted session.
func (s *SQLiteStore) LoadSession(ctx context.Context) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT display_name, logged_in_at FROM session WHERE id = 1`)

	var name string
	var loggedInAt int64
	err := row.Scan(&name, &loggedInAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	return &domain.Session{DisplayName: name, LoggedInAt: time.Unix(loggedInAt, 0)}, nil
}

// SaveSession upserts the single session row.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return s.ClearSession(ctx)
	}

	query := `
	INSERT INTO session (id, display_name, logged_in_at, updated_at)
	VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		display_name = excluded.display_name,
		logged_in_at = excluded.logged_in_at,
		updated_at = excluded.updated_at`

	err := s.exec(ctx, "save session", query,
		session.DisplayName, session.LoggedInAt.Unix(), time.Now().Unix())
	if err != nil {
		return err
	}
	s.logger.Debug("Session saved", "name", session.DisplayName)
	return nil
}

// ClearSession deletes the session row. Clearing an empty store is not an error.
func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	if err := s.exec(ctx, "clear session", `DELETE FROM session WHERE id = 1`); err != nil {
		return err
	}
	s.logger.Debug("Session cleared")
	return nil
}

// exec runs a write, retrying while another connection holds the database lock.
func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(busyInterval), busyRetries),
		ctx,
	)
	err := backoff.Retry(func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}
		if isConflict(err) {
			s.logger.Warn("SQLite busy, retrying", "op", op, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// isConflict reports SQLITE_BUSY and "database is locked" errors.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
