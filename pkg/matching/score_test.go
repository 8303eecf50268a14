package matching

import (
	"math"
	"testing"
)

// newScoringEngine builds an engine with default weights for score tests.
// Store and provider are irrelevant to Score itself.
func newScoringEngine(t *testing.T) *Engine {
	t.Helper()
	return &Engine{weights: DefaultWeights()}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 0},
		{"one empty", []string{"plastic"}, nil, 0},
		{"disjoint", []string{"plastic"}, []string{"glass"}, 0},
		{"identical", []string{"plastic", "pet"}, []string{"plastic", "pet"}, 1},
		{"partial overlap", []string{"plastic"}, []string{"plastic", "pet"}, 0.5},
		{"case insensitive", []string{"Plastic", "PET"}, []string{"plastic", "pet"}, 1},
		{"duplicates collapse", []string{"paper", "paper"}, []string{"paper"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jaccardSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("jaccardSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceScoreDecreasing(t *testing.T) {
	e := newScoringEngine(t)
	listing := &WasteListing{Quantity: 10, Location: LatLng{Lat: 0, Lng: 0}}

	var prev float64 = 2 // above any possible score
	for _, lng := range []float64{0, 0.5, 1, 5, 20} {
		rec := &RecyclerProfile{Location: LatLng{Lat: 0, Lng: lng}, RemainingCapacity: 100}
		b := e.Score(listing, rec, 0)
		// Isolate the distance contribution via the weights.
		distScore := (b.MatchScore - e.weights.Capacity*b.CapacityScore) / e.weights.Distance
		if distScore >= prev {
			t.Errorf("distance score did not decrease at lng=%v: %v >= %v", lng, distScore, prev)
		}
		if distScore <= 0 || distScore > 1.0001 {
			t.Errorf("distance score out of (0,1] at lng=%v: %v", lng, distScore)
		}
		prev = distScore
	}
}

func TestCapacityScore(t *testing.T) {
	e := newScoringEngine(t)

	tests := []struct {
		name     string
		quantity float64
		capacity float64
		want     float64
	}{
		{"half covered", 1000, 500, 0.5},
		{"exactly covered", 1000, 1000, 1},
		{"over capacity saturates", 1000, 5000, 1},
		{"zero quantity uses floor of one", 0, 0.5, 0.5},
		{"zero quantity saturates", 0, 10, 1},
		{"zero capacity", 1000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := &WasteListing{Quantity: tt.quantity}
			rec := &RecyclerProfile{RemainingCapacity: tt.capacity}
			b := e.Score(listing, rec, 0)
			if b.CapacityScore != tt.want {
				t.Errorf("CapacityScore = %v, want %v", b.CapacityScore, tt.want)
			}
		})
	}
}

// TestScoreNYCScenario checks the full breakdown for a realistic listing and
// recycler pair: listing at (40.7306, -73.9352) with quantity 1000 and tag
// plastic, recycler in Brooklyn with capacity 2000 and goals plastic+PET,
// vector similarity 0.8.
func TestScoreNYCScenario(t *testing.T) {
	e := newScoringEngine(t)

	listing := &WasteListing{
		Quantity: 1000,
		Location: LatLng{Lat: 40.7306, Lng: -73.9352},
		Tags:     []string{"plastic"},
	}
	recycler := &RecyclerProfile{
		Location:          LatLng{Lat: 40.6500, Lng: -73.9500},
		RemainingCapacity: 2000,
		Goals:             []string{"plastic", "PET"},
	}

	b := e.Score(listing, recycler, 0.8)

	if b.MaterialMatch != 0.8 {
		t.Errorf("MaterialMatch = %v, want 0.8", b.MaterialMatch)
	}
	if math.Abs(b.DistanceKM-9.05) > 0.05 {
		t.Errorf("DistanceKM = %v, want ~9.05", b.DistanceKM)
	}
	if b.CapacityScore != 1.0 {
		t.Errorf("CapacityScore = %v, want 1.0", b.CapacityScore)
	}
	if b.SustainabilityScore != 0.5 {
		t.Errorf("SustainabilityScore = %v, want 0.5", b.SustainabilityScore)
	}

	km := HaversineKM(listing.Location, recycler.Location)
	want := round4(0.5*0.8 + 0.2*(1.0/(1.0+km)) + 0.2*1.0 + 0.1*0.5)
	if b.MatchScore != want {
		t.Errorf("MatchScore = %v, want %v", b.MatchScore, want)
	}
	// Sanity bound around the published 0.669 figure.
	if b.MatchScore < 0.6650 || b.MatchScore > 0.6750 {
		t.Errorf("MatchScore = %v, outside expected band around 0.669", b.MatchScore)
	}
}

func TestScoreRounding(t *testing.T) {
	e := newScoringEngine(t)

	listing := &WasteListing{
		Quantity: 3,
		Location: LatLng{Lat: 0, Lng: 0},
		Tags:     []string{"a", "b", "c"},
	}
	recycler := &RecyclerProfile{
		Location:          LatLng{Lat: 0.123456, Lng: 0.654321},
		RemainingCapacity: 1,
		Goals:             []string{"a"},
	}

	b := e.Score(listing, recycler, 1.0/3.0)

	for name, v := range map[string]float64{
		"MatchScore":          b.MatchScore,
		"MaterialMatch":       b.MaterialMatch,
		"CapacityScore":       b.CapacityScore,
		"SustainabilityScore": b.SustainabilityScore,
	} {
		if v != round4(v) {
			t.Errorf("%s = %v, not rounded to 4 decimals", name, v)
		}
	}
	if b.DistanceKM != round2(b.DistanceKM) {
		t.Errorf("DistanceKM = %v, not rounded to 2 decimals", b.DistanceKM)
	}
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	if w.Material != 0.5 || w.Distance != 0.2 || w.Capacity != 0.2 || w.Sustainability != 0.1 {
		t.Errorf("DefaultWeights = %+v", w)
	}
}
