package vectorstore

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestAddAndSelfSimilarity(t *testing.T) {
	s, err := New(3, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	vectors := [][]float32{
		{1, 0, 0},
		{0, 2, 0}, // not unit length; the store normalizes
		{1, 1, 0},
	}
	for i, v := range vectors {
		if err := s.Add("item", v, nil); err != nil {
			t.Fatalf("Add(%d) failed: %v", i, err)
		}
	}

	for i, v := range vectors {
		results, err := s.Search(v, 1)
		if err != nil {
			t.Fatalf("Search(%d) failed: %v", i, err)
		}
		if len(results) != 1 {
			t.Fatalf("Search(%d) returned %d results, want 1", i, len(results))
		}
		if got := results[0].Record.ID; got != uint64(i) {
			t.Errorf("query %d: top hit ID = %d, want %d", i, got, i)
		}
		if math.Abs(results[0].Score-1.0) > 1e-6 {
			t.Errorf("query %d: self-similarity = %v, want 1.0", i, results[0].Score)
		}
	}
}

func TestSearchOrderingAndTies(t *testing.T) {
	s, _ := New(2, "")

	// Two identical vectors tie on score; the earlier insert must win.
	s.Add("b", []float32{0, 1}, nil)
	s.Add("tie1", []float32{1, 0}, nil)
	s.Add("tie2", []float32{1, 0}, nil)

	results, err := s.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	wantIDs := []uint64{1, 2, 0}
	for i, want := range wantIDs {
		if results[i].Record.ID != want {
			t.Errorf("results[%d].ID = %d, want %d", i, results[i].Record.ID, want)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestSearchEmptyStore(t *testing.T) {
	s, _ := New(4, "")
	results, err := s.Search([]float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty store, want 0", len(results))
	}
}

func TestSearchTopKLargerThanStore(t *testing.T) {
	s, _ := New(2, "")
	s.Add("a", []float32{1, 0}, nil)
	s.Add("b", []float32{0, 1}, nil)

	results, err := s.Search([]float32{1, 0}, 100)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want all 2", len(results))
	}
}

func TestZeroVectorStoredUnchanged(t *testing.T) {
	s, _ := New(3, "")
	if err := s.Add("zero", []float32{0, 0, 0}, nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := s.Search([]float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0].Score != 0 {
		t.Errorf("score against zero vector = %v, want 0", results[0].Score)
	}
}

func TestDimensionMismatch(t *testing.T) {
	s, _ := New(3, "")
	if err := s.Add("bad", []float32{1, 0}, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Add: expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := s.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.idx")

	s, err := New(3, path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	meta := map[string]any{
		"location":           map[string]any{"lat": 40.73, "lng": -73.93},
		"goals":              []any{"plastic", "PET"},
		"remaining_capacity": 2000.0,
	}
	s.Add("R001", []float32{1, 0, 0}, meta)
	s.Add("R002", []float32{0, 1, 0}, nil)
	s.Add("R003", []float32{0.5, 0.5, 0}, map[string]any{"goals": []any{"glass"}})

	query := []float32{0.6, 0.4, 0}
	before, err := s.Search(query, 3)
	if err != nil {
		t.Fatalf("Search before reload failed: %v", err)
	}

	reloaded, err := Open(3, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if reloaded.Len() != 3 {
		t.Fatalf("reloaded store has %d records, want 3", reloaded.Len())
	}

	after, err := reloaded.Search(query, 3)
	if err != nil {
		t.Fatalf("Search after reload failed: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("result count changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Record.ItemID != after[i].Record.ItemID {
			t.Errorf("result %d: item %q vs %q", i, before[i].Record.ItemID, after[i].Record.ItemID)
		}
		if math.Abs(before[i].Score-after[i].Score) > 1e-6 {
			t.Errorf("result %d: score %v vs %v", i, before[i].Score, after[i].Score)
		}
	}

	// Metadata survives the round trip.
	top, _ := reloaded.Search([]float32{1, 0, 0}, 1)
	if got := top[0].Record.Metadata["remaining_capacity"]; got != 2000.0 {
		t.Errorf("remaining_capacity = %v, want 2000.0", got)
	}

	// Next id continues past the loaded maximum.
	if err := reloaded.Add("R004", []float32{0, 0, 1}, nil); err != nil {
		t.Fatalf("Add after reload failed: %v", err)
	}
	top, _ = reloaded.Search([]float32{0, 0, 1}, 1)
	if top[0].Record.ID != 3 {
		t.Errorf("new record ID = %d, want 3", top[0].Record.ID)
	}
}

func TestOpenMissingArtifactsIsEmptyStore(t *testing.T) {
	s, err := Open(4, filepath.Join(t.TempDir(), "nothing.idx"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("store has %d records, want 0", s.Len())
	}
}

func TestOpenCorruptIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.idx")
	if err := os.WriteFile(path, []byte("not a gob stream"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(3, path); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestOpenMissingSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.idx")

	s, _ := New(2, path)
	if err := s.Add("a", []float32{1, 0}, nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := os.Remove(sidecarPath(path)); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(2, path); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestOpenDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.idx")

	s, _ := New(2, path)
	s.Add("a", []float32{1, 0}, nil)

	if _, err := Open(5, path); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFailedPersistLeavesMemoryUnmodified(t *testing.T) {
	// Point the store at a path whose parent directory does not exist so
	// the persist step fails.
	path := filepath.Join(t.TempDir(), "missing-dir", "vectors.idx")

	s, err := New(2, path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Add("a", []float32{1, 0}, nil); err == nil {
		t.Fatal("Add succeeded despite unwritable path")
	}

	if s.Len() != 0 {
		t.Errorf("store has %d records after failed persist, want 0", s.Len())
	}
	results, _ := s.Search([]float32{1, 0}, 1)
	if len(results) != 0 {
		t.Errorf("failed add is visible to Search: %d results", len(results))
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want []float32
	}{
		{"already unit", []float32{1, 0}, []float32{1, 0}},
		{"scaled", []float32{3, 4}, []float32{0.6, 0.8}},
		{"zero unchanged", []float32{0, 0}, []float32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.in)
			for i := range tt.want {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("normalize(%v)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}
