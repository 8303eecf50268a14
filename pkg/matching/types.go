package matching

// LatLng is a geographic coordinate pair in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WasteListing is the matching engine's view of a listing. It is immutable
// for the duration of a match request except for the lazily assigned
// embedding vector.
type WasteListing struct {
	ID          string
	Description string
	ImageURL    string
	Quantity    float64
	Location    LatLng
	Tags        []string

	// vec caches the listing's embedding for the remainder of the call.
	vec []float32
}

// SetVector assigns a precomputed embedding, bypassing the lazy lookup.
func (l *WasteListing) SetVector(vec []float32) { l.vec = vec }

// RecyclerProfile is an ephemeral view of a recycler candidate, rebuilt from
// vector store metadata for every search hit.
type RecyclerProfile struct {
	ID                string
	Location          LatLng
	Goals             []string
	RemainingCapacity float64
	Vector            []float32
}

// Breakdown is the per-candidate score decomposition. Ratio scores are
// rounded to 4 decimals and the raw distance to 2.
type Breakdown struct {
	MatchScore          float64 `json:"match_score"`
	MaterialMatch       float64 `json:"material_match"`
	DistanceKM          float64 `json:"distance_km"`
	CapacityScore       float64 `json:"capacity_score"`
	SustainabilityScore float64 `json:"sustainability_score"`
}

// Match is one ranked recycler candidate.
type Match struct {
	RecyclerID string `json:"recycler_id"`
	Breakdown
}
