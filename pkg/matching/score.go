package matching

import (
	"math"
	"strings"
)

// Weights are the tunable coefficients of the final match score. They are
// independent coefficients, not a probability mix, and need not sum to 1.
type Weights struct {
	Material       float64 `yaml:"material"`
	Distance       float64 `yaml:"distance"`
	Capacity       float64 `yaml:"capacity"`
	Sustainability float64 `yaml:"sustainability"`
}

// DefaultWeights returns the default scoring coefficients.
func DefaultWeights() Weights {
	return Weights{
		Material:       0.5,
		Distance:       0.2,
		Capacity:       0.2,
		Sustainability: 0.1,
	}
}

// Score computes the full score breakdown for one candidate. The material
// similarity is supplied by the caller (the raw vector-search score).
func (e *Engine) Score(listing *WasteListing, recycler *RecyclerProfile, materialSimilarity float64) Breakdown {
	km := HaversineKM(listing.Location, recycler.Location)
	distanceScore := 1.0 / (1.0 + km)

	// The floor of 1 on the denominator keeps zero-quantity listings from
	// dividing by zero; capacity saturates once it covers the quantity.
	capacityScore := math.Min(1.0, recycler.RemainingCapacity/math.Max(1.0, listing.Quantity))

	sustainabilityScore := jaccardSimilarity(listing.Tags, recycler.Goals)

	final := e.weights.Material*materialSimilarity +
		e.weights.Distance*distanceScore +
		e.weights.Capacity*capacityScore +
		e.weights.Sustainability*sustainabilityScore

	return Breakdown{
		MatchScore:          round4(final),
		MaterialMatch:       round4(materialSimilarity),
		DistanceKM:          round2(km),
		CapacityScore:       round4(capacityScore),
		SustainabilityScore: round4(sustainabilityScore),
	}
}

// jaccardSimilarity computes |a ∩ b| / |a ∪ b| over case-insensitive string
// sets. Two empty sets score 0, not NaN.
func jaccardSimilarity(a, b []string) float64 {
	setA := lowerSet(a)
	setB := lowerSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	inter := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
