package storage

import (
	"sync"

	"snaplister/internal/listing"
)

// MemoryStore is an in-memory HistoryStore for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.Mutex
	listings []*listing.Listing
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() ([]*listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*listing.Listing(nil), s.listings...), nil
}

func (s *MemoryStore) Save(listings []*listing.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append([]*listing.Listing(nil), listings...)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = nil
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
