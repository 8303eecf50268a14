// Package memory provides an in-memory records.Store for development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/ecoloop/recyclematch/pkg/records"
)

// Store is an in-memory implementation of records.Store.
type Store struct {
	mu        sync.RWMutex
	listings  map[string]*records.Listing
	recyclers map[string]*records.Recycler
}

// Ensure Store implements records.Store at compile time.
var _ records.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		listings:  make(map[string]*records.Listing),
		recyclers: make(map[string]*records.Recycler),
	}
}

// GetListing retrieves a listing by id.
func (s *Store) GetListing(_ context.Context, id string) (*records.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return copyListing(l), nil
}

// SaveListing inserts or replaces a listing.
func (s *Store) SaveListing(_ context.Context, l *records.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = copyListing(l)
	return nil
}

// GetRecycler retrieves a recycler by id.
func (s *Store) GetRecycler(_ context.Context, id string) (*records.Recycler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recyclers[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return copyRecycler(r), nil
}

// SaveRecycler inserts or replaces a recycler.
func (s *Store) SaveRecycler(_ context.Context, r *records.Recycler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recyclers[r.ID] = copyRecycler(r)
	return nil
}

// ListRecyclers returns all recycler records.
func (s *Store) ListRecyclers(_ context.Context) ([]*records.Recycler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*records.Recycler, 0, len(s.recyclers))
	for _, r := range s.recyclers {
		out = append(out, copyRecycler(r))
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func copyListing(l *records.Listing) *records.Listing {
	out := *l
	out.Tags = append([]string(nil), l.Tags...)
	return &out
}

func copyRecycler(r *records.Recycler) *records.Recycler {
	out := *r
	out.AcceptedMaterials = append([]string(nil), r.AcceptedMaterials...)
	out.Goals = append([]string(nil), r.Goals...)
	return &out
}
