// Package http serves the recyclematch API over HTTP. The adapter routes
// requests, translates domain errors into the shared JSON error format, and
// stays free of matching logic.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ecoloop/recyclematch/pkg/api"
	"github.com/ecoloop/recyclematch/pkg/matching"
	"github.com/ecoloop/recyclematch/pkg/records"
	"github.com/ecoloop/recyclematch/pkg/transport"
)

// Matcher ranks recycler candidates for a listing. Implemented by
// matching.Engine.
type Matcher interface {
	FindBestRecyclers(ctx context.Context, listing *matching.WasteListing, topK int) ([]matching.Match, error)
}

// ListingSource resolves listing records by id. Implemented by every
// records.Store.
type ListingSource interface {
	GetListing(ctx context.Context, id string) (*records.Listing, error)
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// DefaultTopK is the number of matches returned when the top_k query
	// parameter is absent.
	DefaultTopK int

	// MaxTopK caps the top_k query parameter.
	MaxTopK int
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTopK: 10,
		MaxTopK:     100,
	}
}

// Adapter serves the match API over HTTP.
type Adapter struct {
	matcher  Matcher
	listings ListingSource
	mux      *http.ServeMux
	config   Config
}

// NewAdapter creates an HTTP adapter over the given matcher and listing
// source.
func NewAdapter(matcher Matcher, listings ListingSource, cfg Config) *Adapter {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultConfig().DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultConfig().MaxTopK
	}

	a := &Adapter{
		matcher:  matcher,
		listings: listings,
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("GET /api/match/{listing_id}", a.handleMatch)
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleMatch handles GET /api/match/{listing_id}.
func (a *Adapter) handleMatch(w http.ResponseWriter, r *http.Request) {
	listingID := r.PathValue("listing_id")
	if listingID == "" {
		transport.WriteAPIError(w, api.NewInvalidRequestError("listing_id", "listing id is required"))
		return
	}

	topK := a.config.DefaultTopK
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			transport.WriteAPIError(w, api.NewInvalidRequestError("top_k", "must be a positive integer"))
			return
		}
		topK = n
	}
	if topK > a.config.MaxTopK {
		topK = a.config.MaxTopK
	}

	rec, err := a.listings.GetListing(r.Context(), listingID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("listing not found: "+listingID))
			return
		}
		slog.Error("loading listing failed", "listing_id", listingID, "error", err)
		transport.WriteAPIError(w, api.NewServerError("loading listing failed"))
		return
	}

	listing := listingFromRecord(rec)
	matches, err := a.matcher.FindBestRecyclers(r.Context(), listing, topK)
	if err != nil {
		if errors.Is(err, matching.ErrEmbedding) {
			transport.WriteAPIError(w, api.NewUpstreamError("embedding backend unavailable"))
			return
		}
		slog.Error("matching failed", "listing_id", listingID, "error", err)
		transport.WriteAPIError(w, api.NewServerError("matching failed"))
		return
	}

	if matches == nil {
		matches = []matching.Match{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.MatchResponse{
		ListingID: listingID,
		Matches:   matches,
	})
}

// handleHealthz handles GET /healthz.
func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// listingFromRecord converts a stored listing record into the matching
// engine's input shape.
func listingFromRecord(rec *records.Listing) *matching.WasteListing {
	return &matching.WasteListing{
		ID:          rec.ID,
		Description: rec.Description,
		ImageURL:    rec.ImageURL,
		Quantity:    rec.Quantity,
		Location:    matching.LatLng{Lat: rec.Lat, Lng: rec.Lng},
		Tags:        rec.Tags,
	}
}
