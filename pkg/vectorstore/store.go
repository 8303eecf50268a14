package vectorstore

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Record is a single stored vector with its metadata. Records are created
// once by Add and are immutable afterwards; internal ids strictly increase
// and are never reused within a store's lifetime.
type Record struct {
	// ID is the internal, monotonically increasing identifier assigned by
	// the store.
	ID uint64

	// ItemID is the external identifier supplied by the caller. Uniqueness
	// is not enforced; colliding item ids coexist as separate records.
	ItemID string

	// Vector is the unit-normalized embedding. A zero vector is stored
	// unchanged (degenerate but non-fatal).
	Vector []float32

	// Metadata is an opaque key/value map attached to the record.
	Metadata map[string]any
}

// Result is a single search hit.
type Result struct {
	// Score is the inner product between the normalized query and the
	// record's vector (equals cosine similarity).
	Score float64

	Record *Record
}

// Store is an append-mostly vector index with synchronous persistence.
//
// A single RWMutex serializes writes while allowing concurrent searches, so
// callers observe a linear history of adds and searches. Persistence on Add
// blocks the caller until both artifacts are durably rewritten.
type Store struct {
	dim  int
	path string // empty means in-memory only

	mu      sync.RWMutex
	records []*Record // ordered by ascending ID
	nextID  uint64
}

// New creates an empty store for vectors of the given dimension. If path is
// non-empty, every Add persists the full index and metadata sidecar there.
func New(dim int, path string) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be > 0, got %d", dim)
	}
	return &Store{dim: dim, path: path}, nil
}

// Open loads an existing store from path, or returns an empty store if no
// index artifact exists yet. Unreadable or inconsistent artifacts surface as
// ErrCorrupt; recovering by discarding them is an explicit caller decision,
// never the default.
func Open(dim int, path string) (*Store, error) {
	s, err := New(dim, path)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, nil
	}

	records, nextID, err := loadArtifacts(dim, path)
	if err != nil {
		return nil, err
	}
	s.records = records
	s.nextID = nextID
	return s, nil
}

// Dimension returns the fixed vector dimension of the store.
func (s *Store) Dimension() int { return s.dim }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Add normalizes the vector, assigns the next internal id, and synchronously
// persists the entire index before committing the record in memory. If
// persistence fails, the in-memory state is left unmodified and the error is
// returned: an add never appears to succeed without being durably recorded.
func (s *Store) Add(itemID string, vector []float32, metadata map[string]any) error {
	if len(vector) != s.dim {
		return fmt.Errorf("%w: got %d, store has %d", ErrDimensionMismatch, len(vector), s.dim)
	}

	vec := normalize(vector)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		ID:       s.nextID,
		ItemID:   itemID,
		Vector:   vec,
		Metadata: metadata,
	}

	// Stage the new state, persist from it, and only then commit. The
	// staged slice gets its own backing array so a failed persist cannot
	// leave the record visible through s.records.
	staged := make([]*Record, len(s.records), len(s.records)+1)
	copy(staged, s.records)
	staged = append(staged, rec)

	if s.path != "" {
		if err := persistArtifacts(s.dim, s.path, staged, s.nextID+1); err != nil {
			return fmt.Errorf("persisting vector store: %w", err)
		}
	}

	s.records = staged
	s.nextID++
	return nil
}

// Search returns the topK highest inner-product matches for the query in
// strictly descending score order. Ties are broken by ascending internal id,
// so results are deterministic. An empty store yields an empty result, and a
// topK larger than the store returns every record.
func (s *Store) Search(query []float32, topK int) ([]Result, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: got %d, store has %d", ErrDimensionMismatch, len(query), s.dim)
	}
	if topK <= 0 {
		return nil, nil
	}

	q := normalize(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(s.records))
	for _, rec := range s.records {
		results = append(results, Result{Score: dot(q, rec.Vector), Record: rec})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// normalize returns an L2-normalized copy of v. A zero vector is returned as
// an unchanged copy.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

// dot computes the inner product of two equal-length vectors in float64.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
