package vectorstore

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/ecoloop/recyclematch/pkg/debug"
)

// indexSnapshot is the gob-encoded binary index artifact. It carries the
// vectors in insertion order together with their internal ids.
type indexSnapshot struct {
	Dim     int
	NextID  uint64
	IDs     []uint64
	Vectors [][]float32
}

// sidecarRecord is one entry of the JSON metadata sidecar. The sidecar
// duplicates the vector so a record can be fully reconstructed from it.
type sidecarRecord struct {
	ID       uint64         `json:"internal_id"`
	ItemID   string         `json:"item_id"`
	Vector   []float32      `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// sidecarPath returns the metadata sidecar path for an index artifact path.
func sidecarPath(path string) string { return path + ".meta.json.gz" }

// RemoveArtifacts deletes the index artifact and its metadata sidecar. It is
// the explicit recovery step for a store that failed to Open with ErrCorrupt;
// missing files are not an error.
func RemoveArtifacts(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing index artifact: %w", err)
	}
	if err := os.Remove(sidecarPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing metadata sidecar: %w", err)
	}
	return nil
}

// persistArtifacts rewrites both artifacts from the staged record set. Each
// file is written to a temporary sibling, fsynced, and renamed into place so
// a crash mid-write never leaves a truncated artifact behind.
func persistArtifacts(dim int, path string, records []*Record, nextID uint64) error {
	snap := indexSnapshot{
		Dim:     dim,
		NextID:  nextID,
		IDs:     make([]uint64, 0, len(records)),
		Vectors: make([][]float32, 0, len(records)),
	}
	side := make([]sidecarRecord, 0, len(records))
	for _, rec := range records {
		snap.IDs = append(snap.IDs, rec.ID)
		snap.Vectors = append(snap.Vectors, rec.Vector)
		side = append(side, sidecarRecord{
			ID:       rec.ID,
			ItemID:   rec.ItemID,
			Vector:   rec.Vector,
			Metadata: rec.Metadata,
		})
	}

	if err := writeAtomic(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(snap)
	}); err != nil {
		return fmt.Errorf("writing index artifact: %w", err)
	}

	if err := writeAtomic(sidecarPath(path), func(w io.Writer) error {
		gz := gzip.NewWriter(w)
		if err := json.NewEncoder(gz).Encode(side); err != nil {
			return err
		}
		return gz.Close()
	}); err != nil {
		return fmt.Errorf("writing metadata sidecar: %w", err)
	}

	debug.Log("vectorstore", "artifacts rewritten", "path", path, "records", len(records))
	return nil
}

// loadArtifacts reconstructs the record set from both artifacts. A missing
// index artifact means a brand-new store; anything unreadable or mutually
// inconsistent is reported as ErrCorrupt.
func loadArtifacts(dim int, path string) ([]*Record, uint64, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: opening index artifact: %w", ErrCorrupt, err)
	}
	defer f.Close()

	var snap indexSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, 0, fmt.Errorf("%w: decoding index artifact %s: %w", ErrCorrupt, path, err)
	}
	if snap.Dim != dim {
		return nil, 0, fmt.Errorf("%w: index has dimension %d, store configured for %d", ErrDimensionMismatch, snap.Dim, dim)
	}
	if len(snap.IDs) != len(snap.Vectors) {
		return nil, 0, fmt.Errorf("%w: index has %d ids but %d vectors", ErrCorrupt, len(snap.IDs), len(snap.Vectors))
	}

	side, err := loadSidecar(sidecarPath(path))
	if err != nil {
		return nil, 0, err
	}

	records := make([]*Record, 0, len(snap.IDs))
	var maxID uint64
	for i, id := range snap.IDs {
		sc, ok := side[id]
		if !ok {
			return nil, 0, fmt.Errorf("%w: sidecar missing record for internal id %d", ErrCorrupt, id)
		}
		if len(snap.Vectors[i]) != dim {
			return nil, 0, fmt.Errorf("%w: record %d has dimension %d, want %d", ErrCorrupt, id, len(snap.Vectors[i]), dim)
		}
		records = append(records, &Record{
			ID:       id,
			ItemID:   sc.ItemID,
			Vector:   snap.Vectors[i],
			Metadata: sc.Metadata,
		})
		if id > maxID {
			maxID = id
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	nextID := snap.NextID
	if len(records) > 0 && maxID+1 > nextID {
		nextID = maxID + 1
	}
	return records, nextID, nil
}

// loadSidecar reads the gzip-compressed JSON sidecar into an id-keyed map.
func loadSidecar(path string) (map[uint64]sidecarRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening metadata sidecar: %w", ErrCorrupt, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading metadata sidecar %s: %w", ErrCorrupt, path, err)
	}
	defer gz.Close()

	var side []sidecarRecord
	if err := json.NewDecoder(gz).Decode(&side); err != nil {
		return nil, fmt.Errorf("%w: decoding metadata sidecar %s: %w", ErrCorrupt, path, err)
	}

	byID := make(map[uint64]sidecarRecord, len(side))
	for _, sc := range side {
		byID[sc.ID] = sc
	}
	return byID, nil
}

// writeAtomic writes a file via a temporary sibling and rename.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
