package matching

import (
	"fmt"

	"github.com/ecoloop/recyclematch/pkg/vectorstore"
)

// Recognized metadata keys for recycler records in the vector store.
const (
	metaKeyLocation = "location"
	metaKeyGoals    = "goals"
	metaKeyCapacity = "remaining_capacity"
)

// RecyclerMetadata is the typed form of a recycler's vector store metadata.
// It is validated at ingestion time so key-mismatch bugs surface when a
// record is written, not when it is scored.
type RecyclerMetadata struct {
	Location          LatLng
	Goals             []string
	RemainingCapacity float64
}

// Validate checks value ranges before the metadata is written to the store.
func (m RecyclerMetadata) Validate() error {
	if m.Location.Lat < -90 || m.Location.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", m.Location.Lat)
	}
	if m.Location.Lng < -180 || m.Location.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", m.Location.Lng)
	}
	if m.RemainingCapacity < 0 {
		return fmt.Errorf("remaining capacity %v must be non-negative", m.RemainingCapacity)
	}
	return nil
}

// Map encodes the metadata into the opaque form stored on a vector record.
func (m RecyclerMetadata) Map() map[string]any {
	goals := make([]any, len(m.Goals))
	for i, g := range m.Goals {
		goals[i] = g
	}
	return map[string]any{
		metaKeyLocation: map[string]any{"lat": m.Location.Lat, "lng": m.Location.Lng},
		metaKeyGoals:    goals,
		metaKeyCapacity: m.RemainingCapacity,
	}
}

// profileFromRecord rebuilds a recycler profile from a search hit. Missing or
// malformed fields degrade to explicit defaults (location (0,0), no goals,
// zero capacity) instead of dropping the candidate.
func profileFromRecord(rec *vectorstore.Record) *RecyclerProfile {
	p := &RecyclerProfile{
		ID:     rec.ItemID,
		Vector: rec.Vector,
	}
	md := rec.Metadata
	if md == nil {
		return p
	}

	if loc, ok := md[metaKeyLocation].(map[string]any); ok {
		p.Location.Lat = asFloat(loc["lat"])
		p.Location.Lng = asFloat(loc["lng"])
	}
	if goals, ok := md[metaKeyGoals].([]any); ok {
		for _, g := range goals {
			if s, ok := g.(string); ok {
				p.Goals = append(p.Goals, s)
			}
		}
	} else if goals, ok := md[metaKeyGoals].([]string); ok {
		p.Goals = append(p.Goals, goals...)
	}
	p.RemainingCapacity = asFloat(md[metaKeyCapacity])

	return p
}

// asFloat coerces the numeric types that survive a JSON round trip.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
