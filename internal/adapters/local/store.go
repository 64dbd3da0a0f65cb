// Package local is the embedded, single-file store used for development and
// single-user installs. Every collection is one JSON blob under a fixed key in
// a SQLite key/value table, the same shape the dashboard kept in browser
// storage.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"hireflow/internal/domain"
)

const (
	campaignsKey      = "hireflow_campaigns"
	usersKey          = "hireflow_users"
	profilesKey       = "hireflow_profiles"
	draftsKey         = "hireflow_drafts"
	eventsKey         = "hireflow_analytics_events"
	eventsBackupKey   = "hireflow_analytics_backup"
	feedbackKey       = "hireflow_feedback_events"
	feedbackBackupKey = "hireflow_user_feedback"
)

// candidatesCacheKey scopes a user's candidate cache.
func candidatesCacheKey(userID string) string {
	return "hireflow_candidates_" + userID
}

type Store struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	policy domain.StagePolicy
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithStagePolicy(p domain.StagePolicy) Option { return func(s *Store) { s.policy = p } }

// Open creates or opens the store file at path.
func Open(path string, log *zap.Logger, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debug("sqlite busy_timeout not applied", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debug("sqlite journal_mode=WAL not applied", zap.Error(err))
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	s := &Store{db: db, path: path, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Path() string { return s.path }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Reset clears every key. Admin/debug use only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv`)
	return err
}

// readJSON decodes the value under key into v. A missing key leaves v untouched.
func (s *Store) readJSON(ctx context.Context, key string, v any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), s.now().UTC())
	return err
}

// appendJSON appends v to the JSON list under key.
func appendJSON[T any](ctx context.Context, s *Store, key string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []T
	if err := s.readJSON(ctx, key, &list); err != nil {
		return err
	}
	list = append(list, v)
	return s.writeJSON(ctx, key, list)
}
