package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
)

// querier is satisfied by both [sql.DB] and [sql.Tx].
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store bundles the repositories behind the single lock that guards the database handle.
//
// Repositories do no locking of their own; goroutines sharing a Store go through [Store.Do].
type Store struct {
	mu        sync.Mutex
	db        *sql.DB
	Tracks    *TrackRepository
	Playlists *PlaylistRepository
	TagGroups *TagGroupRepository
	SyncRuns  *SyncRunRepository
}

// NewStore creates a Store over an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		Tracks:    NewTrackRepository(db),
		Playlists: NewPlaylistRepository(db),
		TagGroups: NewTagGroupRepository(db),
		SyncRuns:  NewSyncRunRepository(db),
	}
}

// Do runs fn while holding the store lock.
//
// fn must not perform file or external library I/O.
func (s *Store) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// withTx runs fn inside a transaction on db.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
