package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ecoloop/recyclematch/pkg/debug"
	"github.com/ecoloop/recyclematch/pkg/embedding"
	"github.com/ecoloop/recyclematch/pkg/observability"
	"github.com/ecoloop/recyclematch/pkg/vectorstore"
)

// DefaultOverfetch is the candidate over-fetch multiplier: the engine asks
// the vector store for DefaultOverfetch x topK hits to leave room for the
// re-ranking to diverge from pure vector similarity. The value is carried
// over unchanged from the system this engine replaces; tune it via Config
// rather than editing it here.
const DefaultOverfetch = 3

// ErrEmbedding marks a failure to obtain a query vector for a listing. No
// search is possible without one, so callers treat this as an upstream
// failure rather than a bad request.
var ErrEmbedding = errors.New("embedding failed")

// Config holds the tunable parameters of the matching engine.
type Config struct {
	// Weights are the scoring coefficients. Zero value means defaults.
	Weights Weights

	// Overfetch is the candidate retrieval multiplier (default: 3).
	Overfetch int
}

// Engine ranks recycler candidates for a waste listing.
type Engine struct {
	store     *vectorstore.Store
	provider  embedding.Provider
	weights   Weights
	overfetch int
}

// New creates a matching engine over the given vector store and embedding
// provider.
func New(store *vectorstore.Store, provider embedding.Provider, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}

	weights := cfg.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	overfetch := cfg.Overfetch
	if overfetch <= 0 {
		overfetch = DefaultOverfetch
	}

	return &Engine{
		store:     store,
		provider:  provider,
		weights:   weights,
		overfetch: overfetch,
	}, nil
}

// FindBestRecyclers returns at most topK recycler matches for the listing in
// strictly descending order of rounded final score. If the listing has no
// cached embedding one is obtained from the provider and cached for the
// remainder of the call; a listing that cannot be embedded at all is a hard
// failure, since no search is possible without a query vector.
func (e *Engine) FindBestRecyclers(ctx context.Context, listing *WasteListing, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	if listing.vec == nil {
		vec, err := e.provider.Embed(ctx, listing.Description, listing.ImageURL)
		if err != nil {
			observability.MatchRequestsTotal.WithLabelValues("embed_error").Inc()
			return nil, fmt.Errorf("listing %s: %w: %w", listing.ID, ErrEmbedding, err)
		}
		listing.vec = vec
	}

	searchStart := time.Now()
	hits, err := e.store.Search(listing.vec, e.overfetch*topK)
	if err != nil {
		observability.MatchRequestsTotal.WithLabelValues("search_error").Inc()
		return nil, fmt.Errorf("searching candidates for listing %s: %w", listing.ID, err)
	}
	observability.VectorSearchDuration.Observe(time.Since(searchStart).Seconds())
	observability.VectorStoreSize.Set(float64(e.store.Len()))

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		recycler := profileFromRecord(hit.Record)
		matches = append(matches, Match{
			RecyclerID: recycler.ID,
			Breakdown:  e.Score(listing, recycler, hit.Score),
		})
	}

	// Stable sort keeps the store's deterministic hit order for candidates
	// whose rounded final scores tie.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}

	observability.MatchRequestsTotal.WithLabelValues("ok").Inc()
	debug.Log("matching", "ranked recycler candidates",
		"listing_id", listing.ID,
		"candidates", len(hits),
		"returned", len(matches),
	)
	return matches, nil
}
