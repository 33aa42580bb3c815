// Package storage persists the listing history across sessions.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"snaplister/internal/listing"
)

// HistorySlot is the well-known key the serialized history array is stored
// under. The name is kept from the app this service replaced, where the same
// array lived in browser local storage.
const HistorySlot = "ebayListingHistory"

// HistoryStore persists the bounded listing history as a single serialized
// array under one well-known slot.
type HistoryStore interface {
	Load() ([]*listing.Listing, error)
	Save(listings []*listing.Listing) error
	Clear() error
	Close() error
}

// SQLiteStore implements HistoryStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the history database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS history (
		slot TEXT PRIMARY KEY,
		listings TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// Load returns the persisted history, most recent first. A missing slot
// yields an empty history. Corrupt stored data is discarded and the slot
// reset rather than surfaced as an error.
func (s *SQLiteStore) Load() ([]*listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.QueryRow("SELECT listings FROM history WHERE slot = ?", HistorySlot).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var listings []*listing.Listing
	if err := json.Unmarshal([]byte(raw), &listings); err != nil {
		log.Warn().Err(err).Msg("discarding corrupt persisted history")
		if _, delErr := s.db.Exec("DELETE FROM history WHERE slot = ?", HistorySlot); delErr != nil {
			return nil, fmt.Errorf("failed to reset corrupt history: %w", delErr)
		}
		return nil, nil
	}
	return listings, nil
}

// Save replaces the stored history with the given listings.
func (s *SQLiteStore) Save(listings []*listing.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO history (slot, listings, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET listings = excluded.listings, updated_at = excluded.updated_at
	`, HistorySlot, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Clear removes the stored history.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM history WHERE slot = ?", HistorySlot); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
