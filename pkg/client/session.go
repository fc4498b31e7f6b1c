package client

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"calldesk/internal/domain"

	_ "modernc.org/sqlite"
)

// SessionStore is the durable client-side cache of an agent's own presence,
// the piece that makes status survive restarts and re-logins. Keys are
// namespaced per agent so sequential logins on one machine never read each
// other's state.
type SessionStore struct {
	db *sql.DB
}

// OpenSessionStore opens (creating if needed) the session database at path.
func OpenSessionStore(path string) (*SessionStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SessionStore{db: db}, nil
}

// DefaultSessionPath returns the per-user location of the session database.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "calldesk", "session.db"), nil
}

func (s *SessionStore) Close() error { return s.db.Close() }

func (s *SessionStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SessionStore) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO session_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SessionStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM session_state WHERE key = ?`, key)
	return err
}

func statusKey(agentNumber string) string     { return "workingStatus:" + agentNumber }
func breakStartKey(agentNumber string) string { return "breakStartTime:" + agentNumber }

// SaveState overwrites the cached presence for one agent. breakStart must be
// non-nil exactly when status is Break with an open interval.
func (s *SessionStore) SaveState(agentNumber, status string, breakStart *time.Time) error {
	if err := s.Set(statusKey(agentNumber), status); err != nil {
		return err
	}
	if breakStart != nil {
		return s.Set(breakStartKey(agentNumber), breakStart.Format(time.RFC3339))
	}
	return s.Delete(breakStartKey(agentNumber))
}

// LoadState reads the cached presence for one agent. Absent or partial state
// defaults to Working with no break start.
func (s *SessionStore) LoadState(agentNumber string) (status string, breakStart *time.Time, err error) {
	status, ok, err := s.Get(statusKey(agentNumber))
	if err != nil {
		return "", nil, err
	}
	if !ok || status != domain.StatusBreak {
		if !ok {
			status = domain.StatusWorking
		}
		return status, nil, nil
	}
	raw, ok, err := s.Get(breakStartKey(agentNumber))
	if err != nil {
		return "", nil, err
	}
	if !ok {
		// Break status with no start instant is unusable; fall back.
		return domain.StatusWorking, nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "", nil, fmt.Errorf("corrupt break start time: %w", err)
	}
	return domain.StatusBreak, &t, nil
}

// Clear erases all cached state for one agent (logout).
func (s *SessionStore) Clear(agentNumber string) error {
	if err := s.Delete(statusKey(agentNumber)); err != nil {
		return err
	}
	return s.Delete(breakStartKey(agentNumber))
}
