package api

import "github.com/ecoloop/recyclematch/pkg/matching"

// MatchResponse is the response body of GET /api/match/{listing_id}.
type MatchResponse struct {
	ListingID string           `json:"listing_id"`
	Matches   []matching.Match `json:"matches"`
}
